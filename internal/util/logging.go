package util

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LoggingError logs and returns the error as-is.
func LoggingError(err error) error {
	logrus.WithError(err).Error()
	return err
}

// LoggingNewError creates a new error from the message, logs, and returns it.
func LoggingNewError(msg string) error {
	err := errors.New(msg)
	logrus.Error(err)
	return err
}

// LoggingNewErrorf creates a new formatted error, logs, and returns it.
func LoggingNewErrorf(format string, args ...any) error {
	err := errors.Errorf(format, args...)
	logrus.Error(err)
	return err
}

// LoggingErrorMsg wraps the error with a message, logs, and returns it.
func LoggingErrorMsg(err error, msg string) error {
	logrus.WithError(err).Error(SanitizeLog(msg))
	if err == nil {
		return errors.New(msg)
	}
	return errors.Wrap(err, msg)
}

// LoggingErrorMsgf wraps the error with a formatted message, logs, and returns it.
func LoggingErrorMsgf(err error, format string, args ...any) error {
	msg := errors.Errorf(format, args...).Error()
	return LoggingErrorMsg(err, msg)
}
