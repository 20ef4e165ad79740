package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options 数据库连接参数
type Options struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Charset  string
	Path     string
}

// Open 按驱动打开数据库并迁移给定模型
// TranslateError 打开后唯一约束冲突统一为 gorm.ErrDuplicatedKey
func Open(opts Options, models ...interface{}) (*gorm.DB, error) {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	if opts.Driver == "sqlite" {
		// SQLite 只允许单写者
		sqlDB, err := connection.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if len(models) > 0 {
		if err := connection.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return connection, nil
}

// Close 关闭底层连接池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case "mysql", "":
		charset := opts.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			opts.User, opts.Password, opts.Host, opts.Port, opts.Name, charset)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			opts.Host, opts.Port, opts.User, opts.Password, opts.Name)
		return postgres.Open(dsn), nil
	case "sqlite":
		path := opts.Path
		if path == "" {
			path = "linkpay.db"
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", opts.Driver)
	}
}
