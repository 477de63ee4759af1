package slashbot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	dbTypeSQLite   = "sqlite"
	dbTypePostgres = "postgres"
)

var (
	sqliteMaxOpenConns    = 1
	sqliteMaxIdleConns    = 1
	sqliteMaxConnLifetime = 5 * time.Minute
	sqliteExecPragma      = []string{
		"pragma journal_mode=WAL;",
		"pragma synchronous = normal;",
		"pragma temp_store = memory;",
		"pragma foreign_keys = ON;",
	}
	dbOperationTimeout = 30 * time.Second
)

// ModelUnixTime is an embeddable model with Unix timestamps for
// creation, update, and deletion.
type ModelUnixTime struct {
	CreatedAt int64          `gorm:"autoCreateTime:milli" json:"created_at,omitempty"`
	UpdatedAt int64          `gorm:"autoUpdateTime:milli" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type ModelStringID struct {
	ID string `gorm:"primaryKey" json:"id"`
}

type ModelUintID struct {
	ID uint `gorm:"primaryKey" json:"id"`
}

// database wraps the GORM connection and provides the DBI methods.
//
// When concurrent writes are disabled (SQLite), all write operations
// are serialized behind a mutex. An in-memory User cache sits in front
// of the users table.
type database struct {
	db                     *gorm.DB
	mu                     sync.Mutex
	logger                 *slog.Logger
	userCache              map[string]*User
	cacheMu                sync.Mutex
	enableConcurrentWrites bool
}

// NewDatabase initializes a new database instance.
//
// If log is nil, a default logger is used. enableConcurrentWrites
// should be false for SQLite and true for Postgres.
func NewDatabase(
	db *gorm.DB,
	log *slog.Logger,
	enableConcurrentWrites bool,
) DBI {
	if log == nil {
		log = slog.Default()
	}
	d := &database{
		db:                     db,
		userCache:              map[string]*User{},
		logger:                 log.With(loggerNameKey, "writedb"),
		enableConcurrentWrites: enableConcurrentWrites,
	}
	return d
}

func (d *database) UserCache() map[string]*User {
	return d.userCache
}

func (d *database) UserCacheLock() {
	d.cacheMu.Lock()
}

func (d *database) UserCacheUnlock() {
	d.cacheMu.Unlock()
}

func (d *database) DB() *gorm.DB {
	return d.db
}

func (d *database) Lock() {
	if d.enableConcurrentWrites {
		return
	}
	d.mu.Lock()
}

func (d *database) Unlock() {
	if d.enableConcurrentWrites {
		return
	}
	d.mu.Unlock()
}

// LoadUsers populates the user cache with all known [User] records
// and returns them. Called at startup and from the periodic cache
// refresh job, so the cache swap happens under the cache lock.
func (d *database) LoadUsers() []User {
	var users []User
	_ = d.db.Find(&users)

	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	d.userCache = map[string]*User{}
	for i := 0; i < len(users); i++ {
		u := users[i]
		d.userCache[u.ID] = &u
	}
	return users
}

func (d *database) GetUser(userID string) *User {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	return d.userCache[userID]
}

func (d *database) ReloadUser(userID string) *User {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	var user User
	if err := d.db.Where("id = ?", userID).Last(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			delete(d.userCache, userID)
		}
		return nil
	}
	d.userCache[userID] = &user

	return &user
}

// GetOrCreateUser retrieves a user from the cache or the database,
// and creates a new user if one does not exist.
func (d *database) GetOrCreateUser(
	ctx context.Context,
	u discordgo.User,
) (*User, bool, error) {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()

	log, ok := ContextLogger(ctx)
	if log == nil || !ok {
		log = slog.Default()
	}

	if user, cachedUser := d.userCache[u.ID]; cachedUser {
		user.LastSeen = time.Now().UTC().UnixMilli()
		updates := map[string]any{columnUserLastSeen: user.LastSeen}

		if user.changedDiscordUsername(u) {
			log.Info(
				"user changed username since last seen",
				slog.Group(
					"old",
					"username", user.Username,
					"global_name", user.GlobalName,
				),
				slog.Group(
					"new",
					"username", u.Username,
					"global_name", u.GlobalName,
				),
			)
			user.Username = u.Username
			user.GlobalName = u.GlobalName
			updates[columnUserUsername] = u.Username
			updates[columnUserGlobalName] = u.GlobalName
		}
		if _, err := d.Updates(context.TODO(), user, updates); err != nil {
			log.Error("error updating user", "user", user, tint.Err(err))
		}
		return user, false, nil
	}

	user := NewUser(u)
	log.InfoContext(ctx, "creating new user", "user", user)

	_, err := d.Create(ctx, user)
	if err != nil {
		log.Error("error creating user", "user", user, tint.Err(err))
		return nil, true, err
	}

	d.userCache[u.ID] = user
	return user, true, nil
}

func (d *database) Create(ctx context.Context, value any, omit ...string) (
	rowsAffected int64,
	err error,
) {
	if !d.enableConcurrentWrites {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	db := d.db
	_, ok := ctx.Deadline()
	if !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dbOperationTimeout)
		defer cancel()
	}
	db = db.WithContext(ctx)

	if len(omit) > 0 {
		rv := db.Omit(omit...).Create(value)
		return rv.RowsAffected, rv.Error
	}
	rv := db.Create(value)
	return rv.RowsAffected, rv.Error
}

func (d *database) Updates(ctx context.Context, model, values any) (
	rowsAffected int64,
	err error,
) {
	if !d.enableConcurrentWrites {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	_, ok := ctx.Deadline()
	if !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dbOperationTimeout)
		defer cancel()
	}
	rv := d.db.WithContext(ctx).Model(model).Updates(values)
	return rv.RowsAffected, rv.Error
}

func (d *database) Transaction(
	ctx context.Context,
	fc func(tx *gorm.DB) error,
	opts ...*sql.TxOptions,
) (err error) {
	if !d.enableConcurrentWrites {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	_, ok := ctx.Deadline()
	if !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dbOperationTimeout)
		defer cancel()
	}
	rv := d.db.WithContext(ctx).Transaction(fc, opts...)
	return rv
}

func (d *database) Save(ctx context.Context, value any, omit ...string) (
	rowsAffected int64,
	err error,
) {
	if !d.enableConcurrentWrites {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	_, ok := ctx.Deadline()
	if !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dbOperationTimeout)
		defer cancel()
	}

	if len(omit) > 0 {
		rv := d.db.WithContext(ctx).Omit(omit...).Save(value)
		return rv.RowsAffected, rv.Error
	}
	rv := d.db.WithContext(ctx).Save(value)
	return rv.RowsAffected, rv.Error
}

func (d *database) Update(
	ctx context.Context,
	model any,
	column string,
	value any,
) (rowsAffected int64, err error) {
	if !d.enableConcurrentWrites {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	_, ok := ctx.Deadline()
	if !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dbOperationTimeout)
		defer cancel()
	}

	rv := d.db.WithContext(ctx).Model(model).Update(column, value)
	return rv.RowsAffected, rv.Error
}

func (d *database) UpdatesWhere(
	ctx context.Context,
	model any,
	values map[string]any,
	query any,
	conds ...any,
) (rowsAffected int64, err error) {
	if !d.enableConcurrentWrites {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	_, ok := ctx.Deadline()
	if !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dbOperationTimeout)
		defer cancel()
	}

	rv := d.db.WithContext(ctx).Model(model).Where(query, conds...).Updates(values)
	return rv.RowsAffected, rv.Error
}

func (d *database) Delete(
	value any,
	conds ...any,
) (rowsAffected int64, err error) {
	if !d.enableConcurrentWrites {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	rv := d.db.Delete(value, conds...)
	return rv.RowsAffected, rv.Error
}

// DBI defines the interface for database operations. This is here primarily
// to enable mocking of the database operations for testing.
// [database] implements this interface for 'real' DB operations.
type DBI interface {
	// UserCacheLock locks the in-memory User cache
	UserCacheLock()

	// UserCacheUnlock unlocks the in-memory User cache
	UserCacheUnlock()

	// UserCache returns the in-memory cache of User objects
	UserCache() map[string]*User

	Lock()
	Unlock()

	DB() *gorm.DB
	LoadUsers() []User
	GetUser(userID string) *User
	ReloadUser(userID string) *User
	GetOrCreateUser(ctx context.Context, u discordgo.User) (*User, bool, error)
	Create(ctx context.Context, value any, omit ...string) (rowsAffected int64, err error)
	Updates(ctx context.Context, model any, values any) (rowsAffected int64, err error)
	Delete(value any, conds ...any) (rowsAffected int64, err error)
	Transaction(
		ctx context.Context,
		fc func(tx *gorm.DB) error,
		opts ...*sql.TxOptions,
	) (err error)
	Save(ctx context.Context, value any, omit ...string) (rowsAffected int64, err error)
	Update(ctx context.Context, model any, column string, value any) (
		rowsAffected int64,
		err error,
	)
	UpdatesWhere(
		ctx context.Context,
		model any,
		values map[string]any,
		query any,
		conds ...any,
	) (rowsAffected int64, err error)
}

// CreateDB initializes and returns a GORM database connection based on
// the specified database type, and auto-migrates the bot's models.
//
// Parameters:
//   - ctx: The context for the database operations.
//   - databaseType: The type of the database, must be 'sqlite' or 'postgres'.
//   - database: The database connection string, or SQLite file path.
//   - logLevel: Level for GORM logging. Runtime config changes take
//     effect because the handler holds the LevelVar.
//   - slowThreshold: Queries slower than this are logged as warnings.
func CreateDB(
	ctx context.Context,
	databaseType string,
	database string,
	logLevel *slog.LevelVar,
	slowThreshold time.Duration,
) (*gorm.DB, error) {
	var level slog.Leveler = DefaultDatabaseLogLevel
	if logLevel != nil {
		level = logLevel
	}
	if slowThreshold <= 0 {
		slowThreshold = DefaultDatabaseSlowThreshold
	}

	handler := tint.NewHandler(
		os.Stdout,
		&tint.Options{
			Level:     level,
			AddSource: true,
		},
	)

	gormLogger := newGORMLogger(handler, slowThreshold)
	dbLogger := slog.New(handler)

	dbLogger.InfoContext(
		ctx,
		"Initializing database",
		"database_type", databaseType,
		"database", database,
	)
	db, err := getDB(databaseType, database, gormLogger)
	if err != nil {
		return db, err
	}

	if databaseType == dbTypeSQLite {
		sqlDB, sqlErr := db.DB()
		if sqlErr != nil {
			return db, sqlErr
		}
		sqlDB.SetMaxOpenConns(sqliteMaxOpenConns)
		sqlDB.SetMaxIdleConns(sqliteMaxIdleConns)
		sqlDB.SetConnMaxLifetime(sqliteMaxConnLifetime)
		for _, pragma := range sqliteExecPragma {
			if execErr := db.Exec(pragma).Error; execErr != nil {
				return db, execErr
			}
		}
	}

	txn := db.WithContext(ctx).Begin()

	mg := txn.Migrator()
	err = mg.AutoMigrate(
		&User{},
		&Reminder{},
		&GuildChain{},
		&GuildMessage{},
		&RuntimeConfig{},
		&InteractionLog{},
	)
	if err != nil {
		return db, err
	}

	commitErr := txn.Commit().Error
	if commitErr != nil {
		return db, commitErr
	}

	return db, nil
}

// getDB initializes and returns a GORM database connection based on the
// specified database type.
func getDB(
	databaseType string,
	database string,
	gormLogger *gormStructuredLogger,
) (*gorm.DB, error) {
	switch databaseType {
	case dbTypeSQLite:
		parentDir := filepath.Dir(database)
		if parentDir != "" {
			if err := os.MkdirAll(parentDir, 0755); err != nil {
				if !errors.Is(err, os.ErrExist) {
					return nil, err
				}
			}
		}
		return gorm.Open(
			sqlite.Open(database),
			&gorm.Config{
				Logger: gormLogger,
				NowFunc: func() time.Time {
					return time.Now().UTC()
				},
			},
		)
	case dbTypePostgres:
		return gorm.Open(
			postgres.Open(database), &gorm.Config{
				Logger: gormLogger,
				NowFunc: func() time.Time {
					return time.Now().UTC()
				},
			},
		)
	default:
		return nil, fmt.Errorf(
			"unsupported database type: %s (must be %q or %q)",
			databaseType, dbTypeSQLite, dbTypePostgres,
		)
	}
}
