package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"strings"

	"pgwired/config"
	"pgwired/executor"
	"pgwired/parser"
	"pgwired/pgwire"
)

// Connection handles the lifecycle of a single client connection:
// startup handshake → authentication → query loop. It owns the session
// state: transaction status, prepared statements and portals.
type Connection struct {
	conn   net.Conn
	reader *pgwire.Reader
	writer *pgwire.Writer
	cfg    *config.Config
	exec   *executor.Executor

	txStatus   byte
	statements map[string]*executor.PreparedStatement
	portals    map[string]*portal

	// ignoreTillSync is set after an error in the extended protocol;
	// subsequent messages are discarded until the client sends Sync.
	ignoreTillSync bool
}

// portal is a bound, ready-to-execute statement. result and pos track
// partial execution when the client limits Execute row counts.
type portal struct {
	stmt          *executor.PreparedStatement
	params        []any
	resultFormats []int16
	result        *executor.Result
	pos           int
}

func newConnection(conn net.Conn, cfg *config.Config, exec *executor.Executor) *Connection {
	return &Connection{
		conn:       conn,
		reader:     pgwire.NewReader(conn),
		writer:     pgwire.NewWriter(conn),
		cfg:        cfg,
		exec:       exec,
		txStatus:   pgwire.TxIdle,
		statements: make(map[string]*executor.PreparedStatement),
		portals:    make(map[string]*portal),
	}
}

// Handle runs the full connection lifecycle and closes the connection on return.
func (c *Connection) Handle() {
	defer c.conn.Close()

	proceed, err := c.startup()
	if err != nil {
		log.Printf("connection %s: startup: %v", c.conn.RemoteAddr(), err)
		return
	}
	if !proceed {
		return
	}

	log.Printf("connection %s: authenticated", c.conn.RemoteAddr())
	c.queryLoop()
	log.Printf("connection %s: disconnected", c.conn.RemoteAddr())
}

// startup performs the PostgreSQL startup handshake. With a configured
// password it requests cleartext authentication; otherwise the connection
// is trusted. SSL negotiation is refused; a CancelRequest ends the
// connection without entering the query loop.
func (c *Connection) startup() (proceed bool, err error) {
	for {
		msg, kind, err := c.reader.ReadStartup()
		if err != nil {
			return false, fmt.Errorf("read startup: %w", err)
		}
		switch kind {
		case pgwire.StartupSSL:
			if err := c.writer.WriteSSLRefuse(); err != nil {
				return false, fmt.Errorf("refuse SSL: %w", err)
			}
			if err := c.writer.Flush(); err != nil {
				return false, err
			}
			continue
		case pgwire.StartupCancel:
			// Cancel requests arrive on their own connection and name another
			// backend; queries here are not cancellable, so just hang up the
			// way Postgres does.
			return false, nil
		}

		user := msg.Parameters["user"]
		if c.cfg.User != "" && user != c.cfg.User {
			c.sendFatalError("28000", fmt.Sprintf("authentication failed for user %q", user))
			return false, fmt.Errorf("unknown user: %s", user)
		}
		if db := msg.Parameters["database"]; c.cfg.Database != "" && db != "" && db != c.cfg.Database {
			c.sendFatalError("3D000", fmt.Sprintf("database %q does not exist", db))
			return false, fmt.Errorf("unknown database: %s", db)
		}

		if c.cfg.Password != "" {
			// Request cleartext password.
			if err := c.writer.WriteAuthCleartextPassword(); err != nil {
				return false, err
			}
			if err := c.writer.Flush(); err != nil {
				return false, err
			}

			msgType, payload, err := c.reader.ReadMessage()
			if err != nil {
				return false, fmt.Errorf("read password: %w", err)
			}
			if msgType != pgwire.MsgPasswordMessage {
				return false, fmt.Errorf("expected PasswordMessage, got '%c'", msgType)
			}

			password := stripNull(payload)
			if password != c.cfg.Password {
				c.sendFatalError("28P01", fmt.Sprintf("password authentication failed for user %q", user))
				return false, fmt.Errorf("bad password for user: %s", user)
			}
		}

		// Authentication succeeded — send the post-auth preamble.
		if err := c.writer.WriteAuthOk(); err != nil {
			return false, err
		}
		serverParams := [][2]string{
			{"server_version", "16.0"},
			{"server_encoding", "UTF8"},
			{"client_encoding", "UTF8"},
			{"DateStyle", "ISO, MDY"},
			{"TimeZone", "UTC"},
			{"integer_datetimes", "on"},
			{"standard_conforming_strings", "on"},
		}
		for _, p := range serverParams {
			if err := c.writer.WriteParameterStatus(p[0], p[1]); err != nil {
				return false, err
			}
		}
		// Clients expect a plausible backend pid; there is no real backend
		// process per connection, so make one up.
		pid := rand.Int31n(32768) + 1000
		if err := c.writer.WriteBackendKeyData(pid, rand.Int31()); err != nil {
			return false, err
		}
		if err := c.writer.WriteReadyForQuery(c.txStatus); err != nil {
			return false, err
		}
		return true, c.writer.Flush()
	}
}

// queryLoop reads and responds to client messages until the client
// disconnects or a write error occurs.
func (c *Connection) queryLoop() {
	for {
		msgType, payload, err := c.reader.ReadMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("connection %s: read: %v", c.conn.RemoteAddr(), err)
			}
			return
		}

		// After an extended-protocol error, discard until Sync.
		if c.ignoreTillSync && msgType != pgwire.MsgSync && msgType != pgwire.MsgTerminate {
			continue
		}

		var werr error
		switch msgType {
		case pgwire.MsgQuery:
			werr = c.handleSimpleQuery(stripNull(payload))
		case pgwire.MsgParse:
			werr = c.handleParse(payload)
		case pgwire.MsgBind:
			werr = c.handleBind(payload)
		case pgwire.MsgDescribe:
			werr = c.handleDescribe(payload)
		case pgwire.MsgExecute:
			werr = c.handleExecute(payload)
		case pgwire.MsgClose:
			werr = c.handleClose(payload)
		case pgwire.MsgSync:
			c.ignoreTillSync = false
			werr = c.sendReady()
		case pgwire.MsgFlush:
			werr = c.writer.Flush()
		case pgwire.MsgTerminate:
			return
		default:
			log.Printf("connection %s: unsupported message type '%c'", c.conn.RemoteAddr(), msgType)
		}
		if werr != nil {
			log.Printf("connection %s: write: %v", c.conn.RemoteAddr(), werr)
			return
		}
	}
}

// -------------------------------------------------------------------------
// Simple query protocol
// -------------------------------------------------------------------------

// handleSimpleQuery processes a Query message, which may carry several
// semicolon-separated statements, and writes the complete response ending
// in a single ReadyForQuery.
func (c *Connection) handleSimpleQuery(query string) error {
	if c.cfg.LogQueries {
		log.Printf("connection %s: query: %s", c.conn.RemoteAddr(), query)
	}

	stmts, err := parser.ParseAll(query)
	if err != nil {
		if werr := c.sendQueryError(&executor.QueryError{
			Code:    executor.CodeSyntaxError,
			Message: err.Error(),
		}); werr != nil {
			return werr
		}
		c.failTransaction()
		return c.sendReady()
	}
	if len(stmts) == 0 {
		if err := c.writer.WriteEmptyQueryResponse(); err != nil {
			return err
		}
		return c.sendReady()
	}

	// An error aborts the rest of the batch, as Postgres does.
	for _, stmt := range stmts {
		ok, err := c.runSimpleStmt(stmt)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return c.sendReady()
}

// runSimpleStmt executes one statement of a simple-protocol query and writes
// its response. ok reports whether the remaining statements may run.
func (c *Connection) runSimpleStmt(stmt parser.Statement) (ok bool, err error) {
	// In a failed transaction only BEGIN/COMMIT/ROLLBACK get through.
	if c.txStatus == pgwire.TxFailed && !isTransactionControl(stmt) {
		return false, c.writer.WriteErrorResponse("ERROR", executor.CodeFailedTransaction,
			"current transaction is aborted, commands ignored until end of transaction block")
	}

	result, xerr := c.exec.ExecuteStatement(stmt)
	if xerr != nil {
		if werr := c.sendQueryError(xerr); werr != nil {
			return false, werr
		}
		c.failTransaction()
		return false, nil
	}

	tag := c.applyTxTag(result.Tag)

	if result.Columns != nil {
		if err := c.writer.WriteRowDescription(describeColumns(result.Columns, nil)); err != nil {
			return false, err
		}
		for _, row := range result.Rows {
			textRow := make([][]byte, len(row))
			for i, v := range row {
				textRow[i] = executor.FormatText(v)
			}
			if err := c.writer.WriteDataRow(textRow); err != nil {
				return false, err
			}
		}
	}

	return true, c.writer.WriteCommandComplete(tag)
}

// -------------------------------------------------------------------------
// Extended query protocol
// -------------------------------------------------------------------------

func (c *Connection) handleParse(payload []byte) error {
	m, err := pgwire.DecodeParse(payload)
	if err != nil {
		return c.sendExtendedError(&executor.QueryError{Code: executor.CodeProtocolViolation, Message: err.Error()})
	}
	if c.cfg.LogQueries {
		log.Printf("connection %s: parse %q: %s", c.conn.RemoteAddr(), m.Name, m.Query)
	}
	if _, exists := c.statements[m.Name]; exists && m.Name != "" {
		return c.sendExtendedError(&executor.QueryError{
			Code:    executor.CodeDuplicateStatement,
			Message: fmt.Sprintf("prepared statement %q already exists", m.Name),
		})
	}

	if strings.TrimSpace(m.Query) == "" {
		// An empty statement is valid; Execute answers EmptyQueryResponse.
		c.statements[m.Name] = &executor.PreparedStatement{Name: m.Name, SQL: m.Query}
		return c.writer.WriteParseComplete()
	}

	ps, err := c.exec.Prepare(m.Name, m.Query, m.ParamOIDs)
	if err != nil {
		return c.sendExtendedError(err)
	}
	c.statements[m.Name] = ps
	return c.writer.WriteParseComplete()
}

func (c *Connection) handleBind(payload []byte) error {
	m, err := pgwire.DecodeBind(payload)
	if err != nil {
		return c.sendExtendedError(&executor.QueryError{Code: executor.CodeProtocolViolation, Message: err.Error()})
	}
	ps, ok := c.statements[m.Statement]
	if !ok {
		return c.sendExtendedError(&executor.QueryError{
			Code:    executor.CodeInvalidSQLStmtName,
			Message: fmt.Sprintf("prepared statement %q does not exist", m.Statement),
		})
	}

	var params []any
	if ps.Stmt != nil {
		params, err = c.exec.BindParams(ps, m.ParamFormats, m.Params)
		if err != nil {
			return c.sendExtendedError(err)
		}
	}

	c.portals[m.Portal] = &portal{stmt: ps, params: params, resultFormats: m.ResultFormats}
	return c.writer.WriteBindComplete()
}

func (c *Connection) handleDescribe(payload []byte) error {
	m, err := pgwire.DecodeDescribe(payload)
	if err != nil {
		return c.sendExtendedError(&executor.QueryError{Code: executor.CodeProtocolViolation, Message: err.Error()})
	}

	if m.Kind == pgwire.TargetStatement {
		ps, ok := c.statements[m.Name]
		if !ok {
			return c.sendExtendedError(&executor.QueryError{
				Code:    executor.CodeInvalidSQLStmtName,
				Message: fmt.Sprintf("prepared statement %q does not exist", m.Name),
			})
		}
		if err := c.writer.WriteParameterDescription(ps.ParamOIDs); err != nil {
			return err
		}
		if ps.Columns == nil {
			return c.writer.WriteNoData()
		}
		return c.writer.WriteRowDescription(describeColumns(ps.Columns, nil))
	}

	p, ok := c.portals[m.Name]
	if !ok {
		return c.sendExtendedError(&executor.QueryError{
			Code:    executor.CodeInvalidCursorName,
			Message: fmt.Sprintf("portal %q does not exist", m.Name),
		})
	}
	if p.stmt.Columns == nil {
		return c.writer.WriteNoData()
	}
	return c.writer.WriteRowDescription(describeColumns(p.stmt.Columns, p.resultFormats))
}

func (c *Connection) handleExecute(payload []byte) error {
	m, err := pgwire.DecodeExecute(payload)
	if err != nil {
		return c.sendExtendedError(&executor.QueryError{Code: executor.CodeProtocolViolation, Message: err.Error()})
	}
	p, ok := c.portals[m.Portal]
	if !ok {
		return c.sendExtendedError(&executor.QueryError{
			Code:    executor.CodeInvalidCursorName,
			Message: fmt.Sprintf("portal %q does not exist", m.Portal),
		})
	}

	if p.stmt.Stmt == nil {
		return c.writer.WriteEmptyQueryResponse()
	}

	if c.txStatus == pgwire.TxFailed && !isTransactionControl(p.stmt.Stmt) {
		return c.sendExtendedError(&executor.QueryError{
			Code:    executor.CodeFailedTransaction,
			Message: "current transaction is aborted, commands ignored until end of transaction block",
		})
	}

	// First Execute on this portal runs the statement; later ones resume
	// from where the previous row limit stopped.
	if p.result == nil {
		result, err := c.exec.ExecutePrepared(p.stmt, p.params)
		if err != nil {
			return c.sendExtendedError(err)
		}
		p.result = result
	}
	result := p.result

	if result.Columns != nil {
		rows := result.Rows[p.pos:]
		suspended := false
		if m.MaxRows > 0 && int(m.MaxRows) < len(rows) {
			rows = rows[:m.MaxRows]
			suspended = true
		}
		for _, row := range rows {
			encoded := make([][]byte, len(row))
			for i, v := range row {
				format := columnFormat(i, p.resultFormats)
				var err error
				encoded[i], err = executor.EncodeValue(v, result.Columns[i].TypeOID, format)
				if err != nil {
					return c.sendExtendedError(err)
				}
			}
			if err := c.writer.WriteDataRow(encoded); err != nil {
				return err
			}
		}
		p.pos += len(rows)
		if suspended {
			return c.writer.WritePortalSuspended()
		}
	}

	return c.writer.WriteCommandComplete(c.applyTxTag(result.Tag))
}

func (c *Connection) handleClose(payload []byte) error {
	m, err := pgwire.DecodeClose(payload)
	if err != nil {
		return c.sendExtendedError(&executor.QueryError{Code: executor.CodeProtocolViolation, Message: err.Error()})
	}
	// Closing a nonexistent target is not an error.
	if m.Kind == pgwire.TargetStatement {
		delete(c.statements, m.Name)
	} else {
		delete(c.portals, m.Name)
	}
	return c.writer.WriteCloseComplete()
}

// -------------------------------------------------------------------------
// Transaction state
// -------------------------------------------------------------------------

// applyTxTag updates the session transaction status for transaction-control
// tags and returns the tag to report. COMMIT of a failed transaction rolls
// back and says so, like Postgres.
func (c *Connection) applyTxTag(tag string) string {
	switch tag {
	case "BEGIN":
		c.txStatus = pgwire.TxInTx
	case "COMMIT":
		if c.txStatus == pgwire.TxFailed {
			tag = "ROLLBACK"
		}
		c.txStatus = pgwire.TxIdle
	case "ROLLBACK":
		c.txStatus = pgwire.TxIdle
	}
	return tag
}

// failTransaction marks an open transaction as failed after a query error.
func (c *Connection) failTransaction() {
	if c.txStatus == pgwire.TxInTx {
		c.txStatus = pgwire.TxFailed
	}
}

func isTransactionControl(stmt parser.Statement) bool {
	switch stmt.(type) {
	case *parser.BeginStmt, *parser.CommitStmt, *parser.RollbackStmt:
		return true
	}
	return false
}

// -------------------------------------------------------------------------
// Response helpers
// -------------------------------------------------------------------------

// sendReady sends ReadyForQuery with the current transaction status and
// flushes the write buffer.
func (c *Connection) sendReady() error {
	if err := c.writer.WriteReadyForQuery(c.txStatus); err != nil {
		return err
	}
	return c.writer.Flush()
}

// sendQueryError writes an ErrorResponse for a simple-protocol failure.
func (c *Connection) sendQueryError(err error) error {
	code := executor.CodeSyntaxError // fallback
	var qe *executor.QueryError
	if errors.As(err, &qe) {
		code = qe.Code
	}
	return c.writer.WriteErrorResponse("ERROR", code, err.Error())
}

// sendExtendedError writes an ErrorResponse during the extended protocol
// and discards further messages until the next Sync. A failure inside an
// open transaction poisons it.
func (c *Connection) sendExtendedError(err error) error {
	c.ignoreTillSync = true
	c.failTransaction()
	return c.sendQueryError(err)
}

// sendFatalError writes a FATAL error response and flushes. Errors are
// logged but not returned since the connection is about to close.
func (c *Connection) sendFatalError(code, message string) {
	c.writer.WriteErrorResponse("FATAL", code, message)
	c.writer.Flush()
}

// describeColumns converts executor column metadata to wire ColumnInfo,
// applying the portal's requested result formats (nil = all text).
func describeColumns(cols []executor.Column, resultFormats []int16) []pgwire.ColumnInfo {
	out := make([]pgwire.ColumnInfo, len(cols))
	for i, col := range cols {
		out[i] = pgwire.ColumnInfo{
			Name:         col.Name,
			DataTypeOID:  col.TypeOID,
			DataTypeSize: col.TypeSize,
			TypeModifier: -1,
			FormatCode:   columnFormat(i, resultFormats),
		}
	}
	return out
}

// columnFormat resolves the format code for column i per the Bind message
// rules: none = all text, one = applies to all, otherwise per column.
func columnFormat(i int, resultFormats []int16) int16 {
	switch len(resultFormats) {
	case 0:
		return pgwire.FormatText
	case 1:
		return resultFormats[0]
	default:
		if i < len(resultFormats) {
			return resultFormats[i]
		}
		return pgwire.FormatText
	}
}

// stripNull removes a trailing null byte from the payload, which is how
// the PG protocol terminates strings in most message types.
func stripNull(b []byte) string {
	if len(b) > 0 && b[len(b)-1] == 0 {
		return string(b[:len(b)-1])
	}
	return string(b)
}
