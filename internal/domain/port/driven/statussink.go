package driven

import "github.com/ericfisherdev/ghnotify/internal/domain/model"

// StatusSink receives the observable agent state (tray icon and tooltip).
type StatusSink interface {
	SetStatus(state model.TrayState)
	SetTooltip(tooltip string)
}
