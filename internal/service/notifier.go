package service

import "notevault-server/internal/domain"

// ChangeNotifier publishes committed note changes to subscribers. Publishing
// is best-effort: callers log failures and move on, a broken notifier never
// fails a request.
type ChangeNotifier interface {
	PublishChange(event *domain.ChangeEvent) error
}
