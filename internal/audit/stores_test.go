package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createStoredEntry() *Entry {
	return &Entry{
		ID:        "0b7c5c1e-3f1e-4c55-9b8e-6c1f7a2d9e10",
		Type:      RequestMetadata,
		Method:    "GET",
		URL:       "https://beacon.example.org/api/info",
		BeaconID:  "org.example.beacon",
		Code:      200,
		Response:  `{"meta":{"beaconId":"org.example.beacon"}}`,
		ElapsedMS: 42,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// ==========================
// PostgresStore
// ==========================

func TestPostgresStore_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := createStoredEntry()
	mock.ExpectExec(`INSERT INTO beacon_log`).
		WithArgs(e.ID, sql.NullString{}, "METADATA", "GET", e.URL,
			sql.NullString{String: e.BeaconID, Valid: true}, 200,
			sql.NullString{}, sql.NullString{},
			sql.NullString{String: e.Response, Valid: true}, int64(42), e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPostgresStore(db)
	assert.NoError(t, store.Save(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO beacon_log`).WillReturnError(errors.New("connection reset"))

	err = NewPostgresStore(db).Save(context.Background(), createStoredEntry())
	assert.ErrorContains(t, err, "connection reset")
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS beacon_log`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, NewPostgresStore(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LastResponse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := createStoredEntry()
	columns := []string{"id", "correlation_id", "type", "method", "url", "beacon_id", "code",
		"message", "request", "response", "elapsed_ms", "created_at"}

	mock.ExpectQuery(`SELECT (.+) FROM beacon_log WHERE url = \$1`).
		WithArgs(e.URL).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(e.ID, nil, "METADATA", "GET", e.URL, e.BeaconID, 200, nil, nil, e.Response, 42, e.CreatedAt))

	mock.ExpectQuery(`SELECT (.+) FROM beacon_log WHERE url = \$1`).
		WithArgs("https://unknown.example.org/info").
		WillReturnError(sql.ErrNoRows)

	store := NewPostgresStore(db)
	got, err := store.LastResponse(context.Background(), e.URL)
	require.NoError(t, err)
	assert.Equal(t, e.BeaconID, got.BeaconID)
	assert.Equal(t, e.Response, got.Response)
	assert.Equal(t, RequestMetadata, got.Type)
	assert.Empty(t, got.CorrelationID)

	_, err = store.LastResponse(context.Background(), "https://unknown.example.org/info")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// RedisStore
// ==========================

func TestRedisStore_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	_, err = store.LastResponse(ctx, createStoredEntry().URL)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, createStoredEntry()))

	failed := createStoredEntry()
	failed.Code = 500
	failed.Response = "boom"
	require.NoError(t, store.Save(ctx, failed))

	got, err := store.LastResponse(ctx, createStoredEntry().URL)
	require.NoError(t, err)
	assert.Equal(t, 200, got.Code)
	assert.Equal(t, createStoredEntry().Response, got.Response)
	assert.Equal(t, time.Hour, mr.TTL(lastResponsePrefix+got.URL))
}

func TestRedisStore_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, time.Minute)
	e := createStoredEntry()
	data, _ := json.Marshal(e)

	mock.ExpectSet(lastResponsePrefix+e.URL, data, time.Minute).SetErr(errors.New("READONLY"))
	mock.ExpectGet(lastResponsePrefix + e.URL).SetErr(errors.New("LOADING"))
	mock.ExpectGet(lastResponsePrefix + "bad").SetVal("not json")

	assert.ErrorContains(t, store.Save(context.Background(), e), "READONLY")

	_, err := store.LastResponse(context.Background(), e.URL)
	assert.ErrorContains(t, err, "LOADING")

	_, err = store.LastResponse(context.Background(), "bad")
	assert.ErrorContains(t, err, "unmarshal")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// ElasticsearchStore
// ==========================

func createTestElasticsearch(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearchStore_Save(t *testing.T) {
	var gotPath string
	var gotDoc Entry
	client := createTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	e := createStoredEntry()
	require.NoError(t, NewElasticsearchStore(client, "beacon-log").Save(context.Background(), e))
	assert.Equal(t, "/beacon-log/_doc/"+e.ID, gotPath)
	assert.Equal(t, e.URL, gotDoc.URL)
}

func TestElasticsearchStore_LastResponse(t *testing.T) {
	hit := createStoredEntry()
	client := createTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/_search"))
		var body strings.Builder
		_, _ = body.WriteString(`{"hits":{"hits":[{"_source":`)
		data, _ := json.Marshal(hit)
		_, _ = body.Write(data)
		_, _ = body.WriteString(`}]}}`)
		_, _ = w.Write([]byte(body.String()))
	})

	got, err := NewElasticsearchStore(client, "beacon-log").LastResponse(context.Background(), hit.URL)
	require.NoError(t, err)
	assert.Equal(t, hit.Response, got.Response)
}

func TestElasticsearchStore_LastResponseMissing(t *testing.T) {
	client := createTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"hits":[]}}`))
	})
	_, err := NewElasticsearchStore(client, "beacon-log").LastResponse(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)

	missingIndex := createTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
	})
	_, err = NewElasticsearchStore(missingIndex, "beacon-log").LastResponse(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
