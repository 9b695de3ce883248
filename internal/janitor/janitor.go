// Package janitor запускает периодические фоновые задачи обслуживания:
// очистку чёрного списка access-токенов и удаление устаревших записей токенов.
package janitor

import (
	"context"
	"log/slog"
	"time"
)

// Task — одна итерация задачи. Ошибка логируется и не останавливает цикл.
type Task func(ctx context.Context) error

// Start запускает задачу name с периодом period в отдельной горутине.
// Неположительный period отключает задачу. Горутина завершается
// при отмене ctx; возвращаемый канал закрывается после её выхода.
func Start(ctx context.Context, log *slog.Logger, name string, period time.Duration, task Task) <-chan struct{} {
	done := make(chan struct{})

	if period <= 0 {
		log.Info("janitor_disabled", slog.String("janitor", name))
		close(done)
		return done
	}

	go func() {
		defer close(done)
		Run(ctx, log, name, period, task)
	}()

	return done
}

// Run выполняет задачу каждые period до отмены ctx.
func Run(ctx context.Context, log *slog.Logger, name string, period time.Duration, task Task) {
	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("janitor_stopped", slog.String("janitor", name))
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error("janitor_failed",
					slog.String("janitor", name),
					slog.String("err", err.Error()),
				)
			}
		}
	}
}
