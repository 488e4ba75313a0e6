package migrate

import (
	"context"
	"io"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"0001_init.up.sql":    {Data: []byte("create table a (id text);\ninsert into a values ('x;y');\n")},
		"0001_init.down.sql":  {Data: []byte("drop table a;")},
		"0002_index.up.sql":   {Data: []byte("create index a_idx on a (id);")},
		"0002_index.down.sql": {Data: []byte("drop index a_idx;")},
		"README.md":           {Data: []byte("ignored")},
	}
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mgr := NewManager(db, testFiles(), WithLogger(quietLogger()))
	mgr.now = func() time.Time { return fixed }

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_init"))
	mock.ExpectBegin()
	mock.ExpectExec("create index a_idx on a \\(id\\)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into schema_migrations").
		WithArgs("0002_index", fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ran, err := mgr.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_index"}, ran)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mgr := NewManager(db, testFiles(), WithLogger(quietLogger()), WithTable("mig"))

	mock.ExpectExec("create table if not exists mig").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from mig").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("create table a").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	ran, err := mgr.Up(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, ran)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownRevertsLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mgr := NewManager(db, testFiles(), WithLogger(quietLogger()))

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_init").AddRow("0002_index"))
	mock.ExpectBegin()
	mock.ExpectExec("drop index a_idx").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from schema_migrations where name").
		WithArgs("0002_index").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	name, err := mgr.Down(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0002_index", name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownWithNothingApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err = NewManager(db, testFiles(), WithLogger(quietLogger())).Down(context.Background())
	assert.ErrorIs(t, err, ErrNothingApplied)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("create table a (id text);\n\ninsert into a values ('x;y'); ;\n-- trailing\n")
	assert.Equal(t, []string{
		"create table a (id text)",
		"insert into a values ('x;y')",
	}, got)
}
