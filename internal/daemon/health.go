package daemon

import (
	"context"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/server/responses"
	"git.home.luguber.info/inful/contextfocus/internal/version"
)

// Health executes all health checks and returns the overall status
func (d *Daemon) Health(ctx context.Context) *responses.HealthResponse {
	checks := []responses.HealthCheck{
		d.checkDaemonHealth(),
		d.checkCommandLoop(),
		d.checkStorage(ctx),
		d.checkBridge(),
	}
	if d.cfg.NATS.Enabled() {
		checks = append(checks, d.checkNATS())
	}

	overall := responses.HealthStatusHealthy
	for _, c := range checks {
		overall = overall.Worse(c.Status)
	}

	uptime := ""
	if !d.startTime.IsZero() {
		uptime = d.opts.Now().Sub(d.startTime).Truncate(time.Second).String()
	}
	return &responses.HealthResponse{
		Status:       overall,
		Timestamp:    d.opts.Now(),
		Uptime:       uptime,
		Version:      version.Version,
		DaemonStatus: d.GetStatus().String(),
		Checks:       checks,
	}
}

func (d *Daemon) checkDaemonHealth() responses.HealthCheck {
	check := responses.HealthCheck{Name: "daemon_status"}
	switch d.GetStatus() {
	case StatusRunning:
		check.Status = responses.HealthStatusHealthy
		check.Message = "Daemon is running normally"
	case StatusStarting:
		check.Status = responses.HealthStatusDegraded
		check.Message = "Daemon is still starting up"
	case StatusStopping:
		check.Status = responses.HealthStatusDegraded
		check.Message = "Daemon is shutting down"
	case StatusError:
		check.Status = responses.HealthStatusUnhealthy
		check.Message = "Daemon is in error state"
	default:
		check.Status = responses.HealthStatusUnhealthy
		check.Message = "Daemon is not running"
	}
	return check
}

func (d *Daemon) checkCommandLoop() responses.HealthCheck {
	check := responses.HealthCheck{Name: "command_loop", Status: responses.HealthStatusHealthy}
	select {
	case <-d.loop.Done():
		check.Status = responses.HealthStatusUnhealthy
		check.Message = "Command loop exited"
	default:
		if n := len(d.loop.queue); n > cap(d.loop.queue)/2 {
			check.Status = responses.HealthStatusDegraded
			check.Message = "Command queue is backing up"
		}
	}
	return check
}

func (d *Daemon) checkStorage(ctx context.Context) responses.HealthCheck {
	check := responses.HealthCheck{Name: "storage", Status: responses.HealthStatusHealthy}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := d.settings.Settings(ctx); err != nil {
		check.Status = responses.HealthStatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

func (d *Daemon) checkBridge() responses.HealthCheck {
	check := responses.HealthCheck{Name: "browser_bridge", Status: responses.HealthStatusHealthy}
	if d.hub.ClientCount() == 0 && !d.nats.Connected() {
		check.Status = responses.HealthStatusDegraded
		check.Message = "No browser connected"
	}
	return check
}

func (d *Daemon) checkNATS() responses.HealthCheck {
	check := responses.HealthCheck{Name: "nats", Status: responses.HealthStatusHealthy}
	if !d.nats.Connected() {
		check.Status = responses.HealthStatusDegraded
		check.Message = "NATS connection is down"
	}
	return check
}
