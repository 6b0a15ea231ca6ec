// Package sqlstore is an optional durable backend for the player-snapshot
// map, alternative to store.FileStore: one row per guild, storing the
// snapshot as a JSON blob column.
package sqlstore

import (
	"encoding/json"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ryxu-xo/euralink/internal/errs"
	"github.com/ryxu-xo/euralink/internal/player"
)

// snapshotRow is the GORM model backing the player_snapshots table.
type snapshotRow struct {
	GuildID   string `gorm:"primaryKey;column:guild_id"`
	Data      string `gorm:"type:longtext;column:data"`
	UpdatedAt time.Time
}

func (snapshotRow) TableName() string { return "player_snapshots" }

// Store persists snapshots to MySQL via GORM.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and auto-migrates the snapshot table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Fatal, "sqlstore.Open", "connect", err)
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, errs.Wrap(errs.Fatal, "sqlstore.Open", "auto migrate", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.Wrap(errs.Fatal, "sqlstore.Open", "underlying sql.DB", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save upserts one row per guild, replacing whatever was there. Guilds
// present in the table but absent from snapshots (destroyed players) are
// deleted, keeping the table's contents equal to the live set.
func (s *Store) Save(snapshots map[string]player.Snapshot) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		keep := make([]string, 0, len(snapshots))
		for guildID, snap := range snapshots {
			data, err := json.Marshal(snap)
			if err != nil {
				return errs.Wrap(errs.Validation, "sqlstore.Save", "marshal snapshot", err)
			}
			row := snapshotRow{GuildID: guildID, Data: string(data), UpdatedAt: time.Now()}
			if err := tx.Save(&row).Error; err != nil {
				return errs.Wrap(errs.TransientNetwork, "sqlstore.Save", "upsert row", err)
			}
			keep = append(keep, guildID)
		}
		q := tx.Where("guild_id NOT IN ?", keep)
		if len(keep) == 0 {
			q = tx.Where("1 = 1")
		}
		if err := q.Delete(&snapshotRow{}).Error; err != nil {
			return errs.Wrap(errs.TransientNetwork, "sqlstore.Save", "prune stale rows", err)
		}
		return nil
	})
}

// Load reads every row back into a snapshot map.
func (s *Store) Load() (map[string]player.Snapshot, error) {
	var rows []snapshotRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "sqlstore.Load", "select rows", err)
	}
	out := make(map[string]player.Snapshot, len(rows))
	for _, row := range rows {
		var snap player.Snapshot
		if err := json.Unmarshal([]byte(row.Data), &snap); err != nil {
			return nil, errs.Wrap(errs.Validation, "sqlstore.Load", "unmarshal snapshot for "+row.GuildID, err)
		}
		out[row.GuildID] = snap
	}
	return out, nil
}
