package db

import (
	"errors"
	"log"
	"os"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDatabase initializes the SQLite database connection and migrates models.
func InitDatabase(dbPath string) {
	var err error

	// Configure GORM logger
	newLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      false,
			Colorful:                  true,
		},
	)

	DB, err = gorm.Open(gormlite.Open(dbPath), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Auto-migrate the InstalledMod and InstallEvent schema
	err = DB.AutoMigrate(&InstalledMod{}, &InstallEvent{})
	if err != nil {
		log.Fatalf("failed to migrate database schema: %v", err)
	}
}

// RecordInstall upserts the installed-mod record and appends an install event.
func RecordInstall(modID int, name string, taint int, fileName string, filesize int64, subscribed bool) error {
	var existing InstalledMod
	result := DB.Where("mod_id = ?", modID).First(&existing)
	if result.Error == nil {
		existing.Name = name
		existing.Taint = taint
		existing.Broken = false
		existing.FileName = fileName
		existing.Filesize = filesize
		existing.Subscribed = subscribed
		if err := DB.Save(&existing).Error; err != nil {
			return err
		}
	} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		record := InstalledMod{
			ModID:      modID,
			Name:       name,
			Taint:      taint,
			FileName:   fileName,
			Filesize:   filesize,
			Subscribed: subscribed,
		}
		if err := DB.Create(&record).Error; err != nil {
			return err
		}
	} else {
		return result.Error
	}

	return DB.Create(&InstallEvent{
		ModID:    modID,
		Action:   "install",
		Taint:    taint,
		FileName: fileName,
	}).Error
}

// RecordRemove deletes the installed-mod record and appends a remove event.
func RecordRemove(modID int) error {
	var existing InstalledMod
	result := DB.Where("mod_id = ?", modID).First(&existing)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil
	}
	if result.Error != nil {
		return result.Error
	}

	if err := DB.Delete(&existing).Error; err != nil {
		return err
	}
	return DB.Create(&InstallEvent{
		ModID:    modID,
		Action:   "remove",
		Taint:    existing.Taint,
		FileName: existing.FileName,
	}).Error
}
