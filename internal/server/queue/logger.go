package queue

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/drawkeeper/internal/logging"
)

// asynqLogger routes asynq's internal logging into logging.Logger.
type asynqLogger struct {
	log logging.Logger
}

func (l *asynqLogger) Debug(args ...any) { l.log.Debug(context.Background(), fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...any)  { l.log.Info(context.Background(), fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...any)  { l.log.Warn(context.Background(), fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...any) { l.log.Error(context.Background(), fmt.Sprint(args...)) }

func (l *asynqLogger) Fatal(args ...any) {
	l.log.Error(context.Background(), fmt.Sprint(args...))
	os.Exit(1)
}
