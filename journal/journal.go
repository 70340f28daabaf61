// Copyright (c) 2025 The DataKeep Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package journal

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/datakeep/datakeep/config"
)

// This is the repository journal. It keeps two logs: an audit log holding the
// verbatim text of every write query sent to the triple store, and an event
// log recording item views and downloads (from which the usage statistics
// and timelines are computed).

// event types recorded for items
const (
	EventView             = "view"
	EventDownload         = "download"
	EventPrivateView      = "privateView"
	EventReviewerDownload = "reviewerDownload"
	EventGitDownload      = "gitDownload"
	EventImpersonation    = "impersonation"
)

// a single view/download event
type Event struct {
	// UUID associated with the event
	Id uuid.UUID `json:"id"`
	// time at which the event occurred
	Timestamp time.Time `json:"timestamp"`
	// remote address of the requesting client
	IpAddress string `json:"ip_address"`
	// URI of the item viewed or downloaded
	ItemUri string `json:"item_uri"`
	// one of the event type constants above
	EventType string `json:"event_type"`
}

// a per-day event count for timeline statistics
type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// initializes the journal
func Init() error {
	if !IsOpen() {
		go journalProcess()
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

// saves and closes the journal (if it's been opened)
func Finalize() error {
	if IsOpen() {
		channels_.Input.Shutdown <- struct{}{}
		closeChannels()
	}
	return nil
}

// returns true if the journal is open for writing, false if not
func IsOpen() bool {
	if channels_.Open { // has Init() been called?
		channels_.Input.CheckIfOpen <- struct{}{}
		select {
		case isOpen := <-channels_.Output.IsOpen:
			return isOpen
		case <-time.After(1 * time.Second): // after a second, we assume the goroutine has crashed
			closeChannels()
			return false
		}
	}
	return false
}

// records an audit entry containing the verbatim text of a write query
func RecordAudit(query string) error {
	if !IsOpen() {
		return &NotOpenError{}
	}
	channels_.Input.CreateAudit <- query
	return <-channels_.Output.Error
}

// records a view/download event for an item
func RecordEvent(event Event) error {
	switch event.EventType {
	case EventView, EventDownload, EventPrivateView, EventReviewerDownload,
		EventGitDownload, EventImpersonation:
		// pass-through (see below)
	default:
		return &InvalidEventError{
			Id:      event.Id,
			Message: fmt.Sprintf("Invalid event type: %s", event.EventType),
		}
	}
	if event.Id == (uuid.UUID{}) {
		event.Id = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if !IsOpen() {
		return &NotOpenError{}
	}

	channels_.Input.CreateEvent <- event
	return <-channels_.Output.Error
}

// retrieves events within the time range with the given (inclusive) bounds
func Events(start, stop time.Time) ([]Event, error) {
	if !IsOpen() {
		return nil, &NotOpenError{}
	}
	channels_.Input.FetchEvents <- timeRange{Start: start, Stop: stop}
	select {
	case events := <-channels_.Output.Events:
		return events, nil
	case err := <-channels_.Output.Error:
		return nil, err
	}
}

// returns per-day counts of the given event type for an item (empty itemUri
// aggregates over all items)
func Timeline(itemUri, eventType string) ([]DayCount, error) {
	if !IsOpen() {
		return nil, &NotOpenError{}
	}
	channels_.Input.FetchTimeline <- timelineQuery{ItemUri: itemUri, EventType: eventType}
	select {
	case counts := <-channels_.Output.Timeline:
		return counts, nil
	case err := <-channels_.Output.Error:
		return nil, err
	}
}

// returns total event counts by type for an item
func Totals(itemUri string) (map[string]int, error) {
	if !IsOpen() {
		return nil, &NotOpenError{}
	}
	channels_.Input.FetchTotals <- itemUri
	select {
	case totals := <-channels_.Output.Totals:
		return totals, nil
	case err := <-channels_.Output.Error:
		return nil, err
	}
}

//-----------
// Internals
//-----------

// The journal gets its own goroutine so it doesn't bring down the entire
// service if it crashes. Here we define "input" channels (main process ->
// goroutine) and "output" channels (goroutine -> main process) for passing
// data back and forth.

type timeRange struct {
	Start, Stop time.Time
}

type timelineQuery struct {
	ItemUri   string
	EventType string
}

var channels_ struct {
	Open  bool // true if channels are open, false if not
	Input struct {
		CreateAudit   chan string        // for appending audit entries
		CreateEvent   chan Event         // for recording events
		CheckIfOpen   chan struct{}      // for checking whether the journal is open
		FetchEvents   chan timeRange     // for fetching events within a time range
		FetchTimeline chan timelineQuery // for fetching per-day counts
		FetchTotals   chan string        // for fetching per-type totals
		Shutdown      chan struct{}      // for shutting down the journal
	}

	Output struct {
		Events   chan []Event        // for returning events
		Timeline chan []DayCount     // for returning timelines
		Totals   chan map[string]int // for returning totals
		Error    chan error          // for returning errors
		IsOpen   chan bool           // for answering open queries
	}
}

func journalProcess() {

	// the audit log is an append-only bolt bucket keyed by timestamp
	auditPath := filepath.Join(config.Storage.DataDirectory, "audit.db")
	auditDb, err := bolt.Open(auditPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		channels_.Output.Error <- &CantOpenError{Message: err.Error()}
		return
	}
	auditDb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte("audit"))
		return err
	})

	// the event log is a sqlite table so timelines and totals can be computed
	// with plain aggregation
	eventsPath := filepath.Join(config.Storage.DataDirectory, "events.db")
	conn, err := sqlite.OpenConn(eventsPath,
		sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL)
	if err != nil {
		auditDb.Close()
		channels_.Output.Error <- &CantOpenError{Message: err.Error()}
		return
	}
	err = sqlitex.ExecuteTransient(conn, `CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		ip_address TEXT,
		item_uri TEXT NOT NULL,
		event_type TEXT NOT NULL)`, nil)
	if err != nil {
		auditDb.Close()
		conn.Close()
		channels_.Output.Error <- &CantOpenError{Message: err.Error()}
		return
	}

	openChannels()

	// handle requests
	running := true
	for running {
		select {

		case <-channels_.Input.CheckIfOpen:
			channels_.Output.IsOpen <- true // always true if this goroutine is running!

		case query := <-channels_.Input.CreateAudit:
			channels_.Output.Error <- appendAudit(auditDb, query)

		case event := <-channels_.Input.CreateEvent:
			channels_.Output.Error <- insertEvent(conn, event)

		case timeRange := <-channels_.Input.FetchEvents:
			events, err := fetchEvents(conn, timeRange.Start, timeRange.Stop)
			if err != nil {
				channels_.Output.Error <- err
			} else {
				channels_.Output.Events <- events
			}

		case query := <-channels_.Input.FetchTimeline:
			counts, err := fetchTimeline(conn, query.ItemUri, query.EventType)
			if err != nil {
				channels_.Output.Error <- err
			} else {
				channels_.Output.Timeline <- counts
			}

		case itemUri := <-channels_.Input.FetchTotals:
			totals, err := fetchTotals(conn, itemUri)
			if err != nil {
				channels_.Output.Error <- err
			} else {
				channels_.Output.Totals <- totals
			}

		case <-channels_.Input.Shutdown:
			if err := auditDb.Close(); err != nil {
				channels_.Output.Error <- &CantCloseError{Message: err.Error()}
			}
			if err := conn.Close(); err != nil {
				channels_.Output.Error <- &CantCloseError{Message: err.Error()}
			}
			running = false
		}
	}
}

func openChannels() {
	channels_.Open = true
	channels_.Input.CreateAudit = make(chan string)
	channels_.Input.CreateEvent = make(chan Event)
	channels_.Input.CheckIfOpen = make(chan struct{})
	channels_.Input.FetchEvents = make(chan timeRange)
	channels_.Input.FetchTimeline = make(chan timelineQuery)
	channels_.Input.FetchTotals = make(chan string)
	channels_.Input.Shutdown = make(chan struct{})
	channels_.Output.Events = make(chan []Event)
	channels_.Output.Timeline = make(chan []DayCount)
	channels_.Output.Totals = make(chan map[string]int)
	channels_.Output.Error = make(chan error)
	channels_.Output.IsOpen = make(chan bool)
}

func closeChannels() {
	channels_.Open = false
	close(channels_.Input.CreateAudit)
	close(channels_.Input.CreateEvent)
	close(channels_.Input.CheckIfOpen)
	close(channels_.Input.FetchEvents)
	close(channels_.Input.FetchTimeline)
	close(channels_.Input.FetchTotals)
	close(channels_.Input.Shutdown)
	close(channels_.Output.Events)
	close(channels_.Output.Timeline)
	close(channels_.Output.Totals)
	close(channels_.Output.Error)
	close(channels_.Output.IsOpen)
}

func appendAudit(db *bolt.DB, query string) error {
	key := time.Now().Format(time.RFC3339Nano)
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte("audit")).Put([]byte(key), []byte(query))
	})
}

func insertEvent(conn *sqlite.Conn, event Event) error {
	return sqlitex.Execute(conn,
		`INSERT INTO events (id, timestamp, ip_address, item_uri, event_type)
		 VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			event.Id.String(),
			event.Timestamp.UTC().Format(time.RFC3339),
			event.IpAddress,
			event.ItemUri,
			event.EventType,
		}})
}

func fetchEvents(conn *sqlite.Conn, start, stop time.Time) ([]Event, error) {
	events := make([]Event, 0)
	err := sqlitex.Execute(conn,
		`SELECT id, timestamp, ip_address, item_uri, event_type FROM events
		 WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp`,
		&sqlitex.ExecOptions{
			Args: []any{
				start.UTC().Format(time.RFC3339),
				stop.UTC().Format(time.RFC3339),
			},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id, err := uuid.Parse(stmt.ColumnText(0))
				if err != nil {
					return &InvalidEventError{Message: err.Error()}
				}
				timestamp, err := time.Parse(time.RFC3339, stmt.ColumnText(1))
				if err != nil {
					return &InvalidEventError{Id: id, Message: err.Error()}
				}
				events = append(events, Event{
					Id:        id,
					Timestamp: timestamp,
					IpAddress: stmt.ColumnText(2),
					ItemUri:   stmt.ColumnText(3),
					EventType: stmt.ColumnText(4),
				})
				return nil
			},
		})
	return events, err
}

func fetchTimeline(conn *sqlite.Conn, itemUri, eventType string) ([]DayCount, error) {
	counts := make([]DayCount, 0)
	query := `SELECT substr(timestamp, 1, 10) AS day, COUNT(*) FROM events
		 WHERE event_type = ?`
	args := []any{eventType}
	if itemUri != "" {
		query += ` AND item_uri = ?`
		args = append(args, itemUri)
	}
	query += ` GROUP BY day ORDER BY day`
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			counts = append(counts, DayCount{
				Day:   stmt.ColumnText(0),
				Count: stmt.ColumnInt(1),
			})
			return nil
		},
	})
	return counts, err
}

func fetchTotals(conn *sqlite.Conn, itemUri string) (map[string]int, error) {
	totals := make(map[string]int)
	err := sqlitex.Execute(conn,
		`SELECT event_type, COUNT(*) FROM events WHERE item_uri = ? GROUP BY event_type`,
		&sqlitex.ExecOptions{
			Args: []any{itemUri},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				totals[stmt.ColumnText(0)] = stmt.ColumnInt(1)
				return nil
			},
		})
	return totals, err
}
