package tabs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fanoutRecordingCommander struct {
	navErr   error
	badgeErr error
	navs     []string
	badges   []Badge
}

func (r *fanoutRecordingCommander) Navigate(_ context.Context, _ ID, url string) error {
	if r.navErr != nil {
		return r.navErr
	}
	r.navs = append(r.navs, url)
	return nil
}

func (r *fanoutRecordingCommander) SetBadge(_ context.Context, b Badge) error {
	r.badges = append(r.badges, b)
	return r.badgeErr
}

func TestFanoutNavigateStopsAtFirstSuccess(t *testing.T) {
	down := &fanoutRecordingCommander{navErr: errors.New("down")}
	up := &fanoutRecordingCommander{}
	spare := &fanoutRecordingCommander{}

	require.NoError(t, Fanout{down, up, spare}.Navigate(t.Context(), 1, "u"))
	assert.Equal(t, []string{"u"}, up.navs)
	assert.Empty(t, spare.navs)
}

func TestFanoutNavigateAllFail(t *testing.T) {
	a := &fanoutRecordingCommander{navErr: errors.New("a")}
	b := &fanoutRecordingCommander{navErr: errors.New("b")}

	err := Fanout{a, b}.Navigate(t.Context(), 1, "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")

	err = Fanout{}.Navigate(t.Context(), 1, "u")
	assert.ErrorIs(t, err, ErrTabNotFound)
}

func TestFanoutSetBadgeReachesEveryone(t *testing.T) {
	a := &fanoutRecordingCommander{badgeErr: errors.New("a")}
	b := &fanoutRecordingCommander{}

	err := Fanout{a, b}.SetBadge(t.Context(), BadgeOn)
	require.Error(t, err)
	assert.Equal(t, []Badge{BadgeOn}, a.badges)
	assert.Equal(t, []Badge{BadgeOn}, b.badges)
}
