package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTabID       = "tab_id"
	KeyURL         = "url"
	KeyHostname    = "hostname"
	KeySite        = "site"
	KeyReason      = "reason"
	KeyMode        = "mode"
	KeyActive      = "active"
	KeyMessageType = "message_type"
	KeySignal      = "signal"
	KeyLabel       = "label"
	KeyScheduleID  = "schedule_id"
	KeySchedule    = "schedule_name"
	KeyStorageKey  = "storage_key"
	KeySubject     = "subject"
	KeyClientID    = "client_id"
	KeyMethod      = "method"
	KeyPath        = "path"
	KeyStatus      = "status"
	KeyRemoteAddr  = "remote_addr"
	KeyUserAgent   = "user_agent"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func TabID(id int) slog.Attr              { return slog.Int(KeyTabID, id) }
func URL(u string) slog.Attr              { return slog.String(KeyURL, u) }
func Hostname(h string) slog.Attr         { return slog.String(KeyHostname, h) }
func Site(s string) slog.Attr             { return slog.String(KeySite, s) }
func Reason(r string) slog.Attr           { return slog.String(KeyReason, r) }
func Mode(m string) slog.Attr             { return slog.String(KeyMode, m) }
func Active(a bool) slog.Attr             { return slog.Bool(KeyActive, a) }
func MessageType(t string) slog.Attr      { return slog.String(KeyMessageType, t) }
func Signal(s string) slog.Attr           { return slog.String(KeySignal, s) }
func Label(l string) slog.Attr            { return slog.String(KeyLabel, l) }
func ScheduleID(id string) slog.Attr      { return slog.String(KeyScheduleID, id) }
func ScheduleName(n string) slog.Attr     { return slog.String(KeySchedule, n) }
func StorageKey(k string) slog.Attr       { return slog.String(KeyStorageKey, k) }
func Subject(s string) slog.Attr          { return slog.String(KeySubject, s) }
func ClientID(id string) slog.Attr        { return slog.String(KeyClientID, id) }
func Method(m string) slog.Attr           { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr             { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr           { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr       { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr       { return slog.String(KeyUserAgent, ua) }
func DurationMS(ms float64) slog.Attr     { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
