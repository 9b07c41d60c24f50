// Command conformance runs a pgx-based client against the wire server and
// checks the behaviors a PostgreSQL client relies on. With PGWIRE_HOST set
// it targets an external server; otherwise it boots one in process.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pgwired/config"
	"pgwired/executor"
	"pgwired/server"
)

func main() {
	fmt.Println("pgwired conformance test")
	fmt.Println("========================")

	connStr, shutdown := target()
	defer shutdown()

	passed, failed := 0, 0
	for _, sc := range []struct {
		name string
		fn   func(string) error
	}{
		{"Literal round trip", scenarioLiterals},
		{"Sequential connections", scenarioSequentialConnections},
		{"UNION ALL ordering", scenarioUnionAll},
		{"Empty result set", scenarioEmptyResult},
		{"NULL semantics", scenarioNullSemantics},
		{"Text parameter bytes", scenarioTextParam},
		{"Timestamp and version", scenarioTimestampVersion},
		{"Transaction flow", scenarioTransactions},
		{"Failed transaction gate", scenarioFailedTransaction},
		{"Simple protocol", scenarioSimpleProtocol},
	} {
		start := time.Now()
		if err := sc.fn(connStr); err != nil {
			fmt.Printf("[FAIL] %s: %v\n", sc.name, err)
			failed++
		} else {
			fmt.Printf("[PASS] %s (%dms)\n", sc.name, time.Since(start).Milliseconds())
			passed++
		}
	}

	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// target resolves the server to test: PGWIRE_HOST selects an external one,
// otherwise an in-process server on an ephemeral port.
func target() (connStr string, shutdown func()) {
	if host := os.Getenv("PGWIRE_HOST"); host != "" {
		port := os.Getenv("PGWIRE_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("PGWIRE_USERNAME")
		if user == "" {
			user = "postgres"
		}
		connStr = fmt.Sprintf("host=%s port=%s user=%s sslmode=disable", host, port, user)
		if pw := os.Getenv("PGWIRE_PASSWORD"); pw != "" {
			connStr += " password=" + pw
		}
		if db := os.Getenv("PGWIRE_DATABASE"); db != "" {
			connStr += " dbname=" + db
		}
		return connStr, func() {}
	}

	cfg := &config.Config{
		Host:     "127.0.0.1",
		Port:     0, // OS-assigned
		Database: "postgres",
		User:     "postgres",
		Password: "test",
	}
	srv := server.New(cfg, executor.New())
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			fatalf("server: %v", err)
		}
	}()

	var port int
	for i := 0; i < 100; i++ {
		if addr := srv.Addr(); addr != nil {
			port = addr.(*net.TCPAddr).Port
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if port == 0 {
		fatalf("server did not start within 1s")
	}

	fmt.Printf("Started in-process server on port %d\n\n", port)
	connStr = fmt.Sprintf("host=127.0.0.1 port=%d user=postgres password=test dbname=postgres sslmode=disable", port)
	shutdown = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	return connStr, shutdown
}

func connect(connStr string) (*pgx.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return pgx.Connect(ctx, connStr)
}

func scenarioLiterals(connStr string) error {
	conn, err := connect(connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	ctx := context.Background()

	var n int64
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&n); err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("SELECT 1 returned %d", n)
	}

	var s string
	if err := conn.QueryRow(ctx, "SELECT 'hello'").Scan(&s); err != nil {
		return err
	}
	if s != "hello" {
		return fmt.Errorf("SELECT 'hello' returned %q", s)
	}

	var f float64
	if err := conn.QueryRow(ctx, "SELECT 1.5::float8").Scan(&f); err != nil {
		return err
	}
	if f != 1.5 {
		return fmt.Errorf("SELECT 1.5 returned %g", f)
	}
	return nil
}

func scenarioSequentialConnections(connStr string) error {
	for i := 1; i <= 5; i++ {
		conn, err := connect(connStr)
		if err != nil {
			return fmt.Errorf("connection %d: %w", i, err)
		}
		var got int32
		err = conn.QueryRow(context.Background(), "SELECT $1::int4", i).Scan(&got)
		conn.Close(context.Background())
		if err != nil {
			return fmt.Errorf("connection %d: %w", i, err)
		}
		if got != int32(i) {
			return fmt.Errorf("connection %d: got %d", i, got)
		}
	}
	return nil
}

func scenarioUnionAll(connStr string) error {
	conn, err := connect(connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	rows, err := conn.Query(context.Background(),
		"SELECT 1, 'first' UNION ALL SELECT 2, 'second'")
	if err != nil {
		return err
	}
	defer rows.Close()

	want := []struct {
		n int64
		s string
	}{{1, "first"}, {2, "second"}}
	i := 0
	for rows.Next() {
		var n int64
		var s string
		if err := rows.Scan(&n, &s); err != nil {
			return err
		}
		if i >= len(want) || n != want[i].n || s != want[i].s {
			return fmt.Errorf("row %d out of order: (%d, %q)", i, n, s)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if i != 2 {
		return fmt.Errorf("expected 2 rows, got %d", i)
	}
	return nil
}

func scenarioEmptyResult(connStr string) error {
	conn, err := connect(connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	ctx := context.Background()

	var v int64
	err = conn.QueryRow(ctx, "SELECT 1 WHERE 1 = 0").Scan(&v)
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("expected ErrNoRows, got %v", err)
	}

	// Connection must remain usable after an empty result.
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&v); err != nil {
		return fmt.Errorf("connection broken after empty result: %w", err)
	}
	return nil
}

func scenarioNullSemantics(connStr string) error {
	conn, err := connect(connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	ctx := context.Background()

	var v int64
	if err := conn.QueryRow(ctx, "SELECT 1 WHERE NULL IS NULL").Scan(&v); err != nil {
		return fmt.Errorf("NULL IS NULL should yield a row: %w", err)
	}
	err = conn.QueryRow(ctx, "SELECT 1 WHERE NULL = NULL").Scan(&v)
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("NULL = NULL should yield no rows, got %v", err)
	}
	return nil
}

func scenarioTextParam(connStr string) error {
	conn, err := connect(connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	input := `hello'world"with\special`
	var got string
	if err := conn.QueryRow(context.Background(), "SELECT $1::text", input).Scan(&got); err != nil {
		return err
	}
	if got != input {
		return fmt.Errorf("parameter altered in transit: %q", got)
	}
	return nil
}

func scenarioTimestampVersion(connStr string) error {
	conn, err := connect(connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	ctx := context.Background()

	var ts time.Time
	if err := conn.QueryRow(ctx, "SELECT CURRENT_TIMESTAMP").Scan(&ts); err != nil {
		return err
	}
	if d := time.Since(ts); d < -time.Minute || d > time.Hour {
		return fmt.Errorf("timestamp not plausibly current: %v", ts)
	}

	var v string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&v); err != nil {
		return err
	}
	if !strings.HasPrefix(v, "PostgreSQL ") {
		return fmt.Errorf("unexpected version %q", v)
	}
	return nil
}

func scenarioTransactions(connStr string) error {
	conn, err := connect(connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	ctx := context.Background()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	var n int64
	if err := tx.QueryRow(ctx, "SELECT 42").Scan(&n); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return conn.QueryRow(ctx, "SELECT 1").Scan(&n)
}

func scenarioFailedTransaction(connStr string) error {
	conn, err := connect(connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	ctx := context.Background()

	if _, err := conn.Exec(ctx, "BEGIN"); err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, "SELECT nosuch()"); err == nil {
		return fmt.Errorf("undefined function did not error")
	}

	var n int64
	err = conn.QueryRow(ctx, "SELECT 1").Scan(&n)
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "25P02" {
		return fmt.Errorf("expected 25P02 in failed transaction, got %v", err)
	}

	if _, err := conn.Exec(ctx, "ROLLBACK"); err != nil {
		return err
	}
	return conn.QueryRow(ctx, "SELECT 1").Scan(&n)
}

func scenarioSimpleProtocol(connStr string) error {
	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		return err
	}
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	conn, err := pgx.ConnectConfig(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	var n int64
	var s string
	if err := conn.QueryRow(context.Background(), "SELECT 2, 'two'").Scan(&n, &s); err != nil {
		return err
	}
	if n != 2 || s != "two" {
		return fmt.Errorf("got (%d, %q)", n, s)
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal: "+format+"\n", args...)
	os.Exit(2)
}
