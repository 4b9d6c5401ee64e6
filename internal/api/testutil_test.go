package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"marketplace_system/internal/db"
	"marketplace_system/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter int

// testDB opens a fresh in-memory database with the full schema. Each test
// gets its own named memory database so tests cannot interfere.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbCounter++
	dsn := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared", dbCounter)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(db.Models...))
	return conn
}

// testRedis returns a client pointing nowhere. Every cache helper treats
// redis failures as a miss, so handlers fall through to the database.
func testRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
}

// authAs stubs the JWT middleware with a fixed user ID
func authAs(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

// seedStoreWithProduct creates a store owned by a vendor plus one product
func seedStoreWithProduct(t *testing.T, conn *gorm.DB, price float64) (domain.Store, domain.Product) {
	t.Helper()
	vendor := domain.User{Email: "vendor+" + randSuffix() + "@example.com", Password: "x", Role: domain.RoleVendor}
	require.NoError(t, conn.Create(&vendor).Error)
	store := domain.Store{UserID: vendor.ID, Name: "Store"}
	require.NoError(t, conn.Create(&store).Error)
	product := domain.Product{StoreID: store.ID, Name: "Item", Price: price, Stock: 10}
	require.NoError(t, conn.Create(&product).Error)
	return store, product
}

// itoa renders a record ID for use in a request path
func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

var suffixCounter int

// randSuffix keeps seeded emails unique within a test database
func randSuffix() string {
	suffixCounter++
	return string(rune('a' + suffixCounter%26))
}

// doJSON performs one JSON request against a router and returns the recorder
func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, fn := range mutate {
		fn(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func init() {
	gin.SetMode(gin.TestMode)
}
