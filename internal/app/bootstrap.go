package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/HireLedger/internal/config"
	"github.com/router-for-me/HireLedger/internal/models"
	"github.com/router-for-me/HireLedger/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const minAdminPasswordLength = 6

// HasAdminInitialized reports whether the system has at least one admin account.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.Admin{}) {
		return false, nil
	}
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// EnsureBootstrapAdmin creates the configured admin when the admins table is
// empty. It reports whether an account was created.
func EnsureBootstrapAdmin(conn *gorm.DB, creds config.BootstrapAdmin) (bool, error) {
	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return false, fmt.Errorf("check admin status: %w", errInit)
	}
	if initialized {
		return false, nil
	}

	username := strings.TrimSpace(creds.Username)
	if username == "" || strings.TrimSpace(creds.Password) == "" {
		log.Warn("no admin account exists and no bootstrap admin is configured; the admin API is unreachable")
		return false, nil
	}
	if len(creds.Password) < minAdminPasswordLength {
		return false, fmt.Errorf("bootstrap admin password must be at least %d characters", minAdminPasswordLength)
	}
	if errCreate := CreateAdminUserWithConn(conn, username, creds.Password); errCreate != nil {
		return false, errCreate
	}
	log.WithField("username", username).Info("bootstrap admin created")
	return true, nil
}

// CreateAdminUserWithConn creates an active admin account.
func CreateAdminUserWithConn(conn *gorm.DB, username, password string) error {
	if conn == nil {
		return fmt.Errorf("open database: nil connection")
	}

	hashedPassword, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("hash password: %w", errHash)
	}

	now := time.Now().UTC()
	admin := models.Admin{
		Username:  username,
		Password:  hashedPassword,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("create admin: %w", errCreate)
	}
	return nil
}
