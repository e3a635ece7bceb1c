package main

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"worldtour/internal/shared/config"
	"worldtour/internal/shared/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig(port string) *config.Config {
	return &config.Config{
		Port:       port,
		APIPrefix:  "/api",
		APIVersion: "v1",
		JWT:        config.JWTConfig{Secret: "test-secret", Issuer: "worldtour"},
		Payments:   config.PaymentsConfig{Provider: "simulated"},
		Currency:   config.CurrencyConfig{BaseCurrency: "USD"},
		Booking:    config.BookingConfig{HoldTTL: 15 * time.Minute, SweepInterval: time.Hour, SweepBatchSize: 10},
	}
}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	pg, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return &database.DB{PostgreSQL: pg}, mock
}

func TestServe_ListenFailureClosesDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)

	taken, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer taken.Close()
	port := strconv.Itoa(taken.Addr().(*net.TCPAddr).Port)

	db, mock := newMockDB(t)
	mock.ExpectClose()

	err = serve(context.Background(), testConfig(port), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServe_ShutsDownAndClosesDatabaseOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	free, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := strconv.Itoa(free.Addr().(*net.TCPAddr).Port)
	require.NoError(t, free.Close())

	db, mock := newMockDB(t)
	mock.ExpectClose()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, testConfig(port), db) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:" + port + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}
