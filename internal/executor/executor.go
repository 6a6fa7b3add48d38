// Package executor dispatches a classifier.Result onto static tables,
// single-key reads, cursor scans, or atomic token consumption against
// the backing store. Every backing-store error degrades to an empty
// result for that query; none are surfaced to the wire layer as an
// error packet.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"mysqlredisd/internal/classifier"
	"mysqlredisd/internal/metrics"
	"mysqlredisd/internal/store"
)

// userRecord mirrors the JSON payload stored at users.<pk>.
type userRecord struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Age       *int   `json:"age"`
	CreatedAt string `json:"created_at"`
}

// authToken mirrors the JSON payload stored at auth:<token>.
type authToken struct {
	UserID   string `json:"user_id"`
	Facility string `json:"facility"`
}

// Executor runs classified queries against the backing store.
type Executor struct {
	client    store.Client
	scanLimit int
	logger    *logrus.Logger

	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

// New constructs an Executor. scanLimit of 0 disables full scans
// entirely.
func New(client store.Client, scanLimit int, logger *logrus.Logger) *Executor {
	return &Executor{client: client, scanLimit: scanLimit, logger: logger, now: time.Now}
}

// Execute runs one classified query and returns its result set.
func (e *Executor) Execute(ctx context.Context, c classifier.Result, clientAddr string) ResultSet {
	start := e.now()
	defer func() {
		metrics.QueryDuration.WithLabelValues(c.Kind.String()).Observe(time.Since(start).Seconds())
	}()
	metrics.QueriesTotal.WithLabelValues(c.Kind.String()).Inc()

	switch c.Kind {
	case classifier.Version:
		return e.execVersion()
	case classifier.ShowTables:
		return e.execShowTables()
	case classifier.DescribeUsers:
		return e.execDescribeUsers()
	case classifier.PkLookup:
		return e.execPkLookup(ctx, c, clientAddr)
	case classifier.FullScan:
		return e.execFullScan(ctx, c, clientAddr)
	case classifier.TokenVerify:
		return e.execTokenVerify(ctx, c, clientAddr)
	case classifier.Noop:
		return okResult()
	default:
		metrics.QueriesRejectedTotal.Inc()
		e.logRejected(clientAddr)
		return emptyResult([]string{"result"})
	}
}

func (e *Executor) execVersion() ResultSet {
	return ResultSet{
		Columns: []string{"@@version"},
		Rows:    [][]Value{{str(classifier.ServerVersion())}},
	}
}

func (e *Executor) execShowTables() ResultSet {
	return ResultSet{
		Columns: []string{"Tables_in_db"},
		Rows:    [][]Value{{str("users")}},
	}
}

func (e *Executor) execDescribeUsers() ResultSet {
	return ResultSet{
		Columns: describeUsersColumns,
		Rows:    describeUsersRows,
	}
}

func (e *Executor) execPkLookup(ctx context.Context, c classifier.Result, clientAddr string) ResultSet {
	start := e.now()
	key := fmt.Sprintf("users.%s", c.Value)

	payload, ok, err := e.client.Get(ctx, key)
	if err != nil {
		e.logBackingStoreError("GET", key, err)
		return e.emptyUserResult()
	}
	if !ok {
		e.logQueryExecuted("PkLookup", "users", start, 0, clientAddr, "empty")
		return e.emptyUserResult()
	}

	var rec userRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		e.logWarn("user_payload_unparseable", key, err)
		return e.emptyUserResult()
	}

	row := []Value{str(c.Value), str(rec.Name), str(rec.Email), ageValue(rec.Age), str(rec.CreatedAt)}
	e.logQueryExecuted("PkLookup", "users", start, 1, clientAddr, "ok")

	return ResultSet{
		Columns: userColumns,
		Rows:    [][]Value{row},
	}
}

func (e *Executor) emptyUserResult() ResultSet {
	return emptyResult(userColumns)
}

var userColumns = []string{"id", "name", "email", "age", "created_at"}

func ageValue(age *int) Value {
	if age == nil {
		return null()
	}
	return str(strconv.Itoa(*age))
}

func (e *Executor) execFullScan(ctx context.Context, c classifier.Result, clientAddr string) ResultSet {
	start := e.now()

	if e.scanLimit == 0 {
		e.logQueryExecuted("FullScan", "users", start, 0, clientAddr, "disabled")
		return emptyResult(userColumns)
	}

	metrics.ScanOperationsTotal.Inc()
	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"table":  "users",
			"limit":  e.scanLimit,
			"client": clientAddr,
		}).Info("scan_operation_triggered")
	}

	var rows [][]Value
	var cursor uint64

	for {
		keys, next, err := e.client.Scan(ctx, cursor, "users.*", 100)
		if err != nil {
			e.logBackingStoreError("SCAN", "users.*", err)
			break
		}

		for _, key := range keys {
			if len(rows) >= e.scanLimit {
				break
			}
			row, ok := e.loadUserRow(ctx, key)
			if ok {
				rows = append(rows, row)
			}
		}

		cursor = next
		if cursor == 0 || len(rows) >= e.scanLimit {
			break
		}
	}

	e.logQueryExecuted("FullScan", "users", start, len(rows), clientAddr, "ok")

	return ResultSet{Columns: userColumns, Rows: rows}
}

// loadUserRow fetches and decodes a single users.<pk> key located by a
// scan cursor. Unparseable payloads are skipped, not fatal to the scan.
func (e *Executor) loadUserRow(ctx context.Context, key string) ([]Value, bool) {
	const prefixLen = len("users.")
	if len(key) <= prefixLen {
		return nil, false
	}
	pk := key[prefixLen:]

	payload, ok, err := e.client.Get(ctx, key)
	if err != nil {
		e.logBackingStoreError("GET", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var rec userRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		e.logWarn("user_payload_unparseable", key, err)
		return nil, false
	}

	return []Value{str(pk), str(rec.Name), str(rec.Email), ageValue(rec.Age), str(rec.CreatedAt)}, true
}

var tokenVerifyColumns = []string{"verified", "user_id", "facility", "verified_at", "data"}

func (e *Executor) execTokenVerify(ctx context.Context, c classifier.Result, clientAddr string) ResultSet {
	start := e.now()
	key := fmt.Sprintf("auth:%s", c.Token)

	payload, ok, err := e.client.GetDel(ctx, key)
	if err != nil {
		e.logBackingStoreError("GETDEL", key, err)
		return emptyResult(tokenVerifyColumns)
	}
	if !ok {
		e.logQueryExecuted("TokenVerify", "auth", start, 0, clientAddr, "absent")
		return emptyResult(tokenVerifyColumns)
	}

	var tok authToken
	if err := json.Unmarshal([]byte(payload), &tok); err != nil {
		e.logWarn("token_payload_unparseable", key, err)
		return emptyResult(tokenVerifyColumns)
	}

	row := []Value{
		str("1"),
		str(tok.UserID),
		str(tok.Facility),
		str(e.now().UTC().Format("2006-01-02 15:04:05")),
		str(""),
	}

	e.logQueryExecuted("TokenVerify", "auth", start, 1, clientAddr, "ok")

	return ResultSet{Columns: tokenVerifyColumns, Rows: [][]Value{row}}
}

func (e *Executor) logQueryExecuted(queryType, table string, start time.Time, rows int, clientAddr, result string) {
	if e.logger == nil {
		return
	}
	e.logger.WithFields(logrus.Fields{
		"query_type":  queryType,
		"table":       table,
		"duration_ms": time.Since(start).Milliseconds(),
		"rows":        rows,
		"client":      clientAddr,
		"result":      result,
	}).Info("query_executed")
}

func (e *Executor) logWarn(event, key string, err error) {
	if e.logger == nil {
		return
	}
	e.logger.WithFields(logrus.Fields{"key": key, "error": err}).Warn(event)
}

func (e *Executor) logRejected(clientAddr string) {
	if e.logger == nil {
		return
	}
	e.logger.WithFields(logrus.Fields{"client": clientAddr}).Warn("query_rejected")
}

func (e *Executor) logBackingStoreError(op, key string, err error) {
	if e.logger == nil {
		return
	}
	e.logger.WithFields(logrus.Fields{
		"operation": op,
		"key":       key,
		"error":     err,
	}).Error("redis_connection_error")
}
