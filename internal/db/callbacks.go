/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/playcore/internal/telemetry"
)

const (
	_startTime = "gorm:start_time"
)

// RegisterCallbacks times watch-later reads and writes.
func RegisterCallbacks(db *gorm.DB) error {
	for _, register := range []func(*gorm.DB) error{
		registerQueryCallbacks,
		registerCreateCallbacks,
		registerUpdateCallbacks,
		registerDeleteCallbacks,
	} {
		if err := register(db); err != nil {
			return err
		}
	}
	return nil
}

func registerQueryCallbacks(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("playcore:before_query", beforeCallback); err != nil {
		return err
	}

	if err := db.Callback().Query().After("gorm:query").Register("playcore:after_query", afterCallback("query")); err != nil {
		return err
	}

	return nil
}

func registerCreateCallbacks(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("playcore:before_create", beforeCallback); err != nil {
		return err
	}

	if err := db.Callback().Create().After("gorm:create").Register("playcore:after_create", afterCallback("create")); err != nil {
		return err
	}

	return nil
}

func registerUpdateCallbacks(db *gorm.DB) error {
	if err := db.Callback().Update().Before("gorm:update").Register("playcore:before_update", beforeCallback); err != nil {
		return err
	}

	if err := db.Callback().Update().After("gorm:update").Register("playcore:after_update", afterCallback("update")); err != nil {
		return err
	}

	return nil
}

func registerDeleteCallbacks(db *gorm.DB) error {
	if err := db.Callback().Delete().Before("gorm:delete").Register("playcore:before_delete", beforeCallback); err != nil {
		return err
	}

	if err := db.Callback().Delete().After("gorm:delete").Register("playcore:after_delete", afterCallback("delete")); err != nil {
		return err
	}

	return nil
}

func beforeCallback(db *gorm.DB) {
	db.InstanceSet(_startTime, time.Now())
}

// afterCallback observes the elapsed time of operation.
func afterCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, exists := db.InstanceGet(_startTime)
		if !exists {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())

		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation).Inc()
		}
	}
}
