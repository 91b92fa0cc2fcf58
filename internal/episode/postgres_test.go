package episode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Test helpers: mock DB types
// ---------------------------------------------------------------------------

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

type mockRows struct {
	data    [][]any
	idx     int
	err     error
	closed  bool
	scanErr error
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			*d = v.([]byte)
		case *int:
			*d = v.(int)
		case *int64:
			*d = v.(int64)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// PostgresStore tests
// ---------------------------------------------------------------------------

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	var gotSQL string
	db := &mockDB{execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
		gotSQL = sql
		return pgconn.CommandTag{}, nil
	}}
	if err := NewPostgresStore(db).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if gotSQL != Schema {
		t.Error("Migrate did not execute Schema")
	}

	failing := &mockDB{execFunc: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, errors.New("permission denied")
	}}
	if err := NewPostgresStore(failing).Migrate(context.Background()); err == nil || !strings.Contains(err.Error(), "episode: migrate") {
		t.Errorf("Migrate error = %v", err)
	}
}

func TestPostgresStore_Record(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotArgs []any
	db := &mockDB{queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
		if !strings.Contains(sql, "INSERT INTO episodes") {
			t.Errorf("unexpected query: %s", sql)
		}
		gotArgs = args
		return &mockRow{scanFunc: func(dest ...any) error {
			*dest[0].(*int64) = 42
			*dest[1].(*time.Time) = created
			return nil
		}}
	}}

	ep := &Episode{
		RunID:       "abc",
		Project:     "show",
		Script:      "scripts/ep1.txt",
		Output:      "output/ep1.mp3",
		Preset:      "podcast",
		Planned:     10,
		Synthesized: 9,
		Pauses:      2,
		Elapsed:     1500 * time.Millisecond,
	}
	if err := NewPostgresStore(db).Record(context.Background(), ep); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if ep.ID != 42 || !ep.CreatedAt.Equal(created) {
		t.Errorf("ID/CreatedAt not scanned: %+v", ep)
	}
	if len(gotArgs) != 10 {
		t.Fatalf("got %d args, want 10", len(gotArgs))
	}
	if string(gotArgs[8].([]byte)) != "[]" {
		t.Errorf("warnings arg = %s, want []", gotArgs[8])
	}
	if gotArgs[9].(int64) != 1500 {
		t.Errorf("elapsed_ms arg = %v, want 1500", gotArgs[9])
	}
}

func TestPostgresStore_Record_Errors(t *testing.T) {
	t.Parallel()

	store := NewPostgresStore(&mockDB{})
	if err := store.Record(context.Background(), &Episode{}); err == nil {
		t.Error("invalid episode should not be inserted")
	}

	db := &mockDB{queryRowFunc: func(context.Context, string, ...any) pgx.Row {
		return &mockRow{scanFunc: func(...any) error { return errors.New("connection reset") }}
	}}
	err := NewPostgresStore(db).Record(context.Background(), &Episode{Script: "s", Output: "o"})
	if err == nil || !strings.Contains(err.Error(), "episode: record") {
		t.Errorf("Record error = %v", err)
	}
}

func TestPostgresStore_List(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row := []any{
		int64(7), "run-1", "show", "scripts/ep1.txt", "output/ep1.mp3", "",
		12, 11, 1, []byte(`["line 4: unknown speaker \"sarah\""]`), int64(2500), created,
	}

	tests := []struct {
		name     string
		project  string
		limit    int
		wantSQL  []string
		wantArgs int
	}{
		{name: "all", wantSQL: []string{"ORDER BY created_at DESC"}, wantArgs: 0},
		{name: "project", project: "show", wantSQL: []string{"WHERE project = $1"}, wantArgs: 1},
		{name: "project and limit", project: "show", limit: 5, wantSQL: []string{"WHERE project = $1", "LIMIT $2"}, wantArgs: 2},
		{name: "limit only", limit: 5, wantSQL: []string{"LIMIT $1"}, wantArgs: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rows := &mockRows{data: [][]any{row}}
			db := &mockDB{queryFunc: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
				for _, want := range tt.wantSQL {
					if !strings.Contains(sql, want) {
						t.Errorf("query missing %q:\n%s", want, sql)
					}
				}
				if len(args) != tt.wantArgs {
					t.Errorf("got %d args, want %d", len(args), tt.wantArgs)
				}
				return rows, nil
			}}

			got, err := NewPostgresStore(db).List(context.Background(), tt.project, tt.limit)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if !rows.closed {
				t.Error("rows were not closed")
			}
			if len(got) != 1 {
				t.Fatalf("got %d episodes, want 1", len(got))
			}
			ep := got[0]
			if ep.ID != 7 || ep.Planned != 12 || ep.Synthesized != 11 || ep.Elapsed != 2500*time.Millisecond {
				t.Errorf("episode = %+v", ep)
			}
			if len(ep.Warnings) != 1 || !strings.Contains(ep.Warnings[0], "sarah") {
				t.Errorf("warnings = %v", ep.Warnings)
			}
		})
	}
}

func TestPostgresStore_List_Errors(t *testing.T) {
	t.Parallel()

	queryErr := &mockDB{queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
		return nil, errors.New("boom")
	}}
	if _, err := NewPostgresStore(queryErr).List(context.Background(), "", 0); err == nil {
		t.Error("expected query error")
	}

	scanErr := &mockDB{queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
		return &mockRows{data: [][]any{{}}, scanErr: errors.New("bad column")}, nil
	}}
	if _, err := NewPostgresStore(scanErr).List(context.Background(), "", 0); err == nil || !strings.Contains(err.Error(), "list scan") {
		t.Errorf("scan error = %v", err)
	}

	iterErr := &mockDB{queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
		return &mockRows{err: errors.New("stream broken")}, nil
	}}
	if _, err := NewPostgresStore(iterErr).List(context.Background(), "", 0); err == nil {
		t.Error("expected rows.Err to surface")
	}
}
