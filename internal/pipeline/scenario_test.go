package pipeline

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdwh/internal/objectstore"
	"github.com/leapstack-labs/leapdwh/internal/testutil"
	"github.com/leapstack-labs/leapdwh/pkg/adapters/duckdb"
	ddialect "github.com/leapstack-labs/leapdwh/pkg/adapters/duckdb/dialect"
	"github.com/leapstack-labs/leapdwh/pkg/catalog"
	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/load"
	"github.com/leapstack-labs/leapdwh/pkg/transform"
)

func writeDataset(t *testing.T, ds testutil.Dataset) load.Config {
	t.Helper()
	paths := ds.Write(t)
	return load.Config{
		LogData:     paths.LogData,
		LogJSONPath: paths.LogJSONPath,
		SongData:    paths.SongData,
	}
}

type warehouse struct {
	db      *duckdb.Adapter
	catalog *catalog.Catalog
	cfg     Config
}

func newWarehouse(t *testing.T, sources load.Config) *warehouse {
	t.Helper()
	logger := testutil.NewTestLogger(t)

	db := duckdb.New(logger)
	require.NoError(t, db.Connect(context.Background(), core.AdapterConfig{Type: "duckdb"}))
	t.Cleanup(func() { _ = db.Close() })

	cat := catalog.New()
	d := ddialect.DuckDB
	store := objectstore.NewWithClient(nil, logger)

	return &warehouse{
		db:      db,
		catalog: cat,
		cfg: Config{
			Adapter:    db,
			Dialect:    d,
			Catalog:    cat,
			Loader:     load.New(cat, d, load.Sources(sources), store),
			Transforms: transform.New(cat, d),
			Preflight:  NewPreflight(store, cat, logger),
			Target:     "duckdb",
			Logger:     logger,
		},
	}
}

func (w *warehouse) run(t *testing.T, mode Mode) *Result {
	t.Helper()
	p, err := New(w.cfg)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), mode)
	require.NoError(t, err)
	require.Equal(t, StateDone, res.State)
	return res
}

func (w *warehouse) count(t *testing.T, query string) int {
	t.Helper()
	var n int
	require.NoError(t, w.db.DB.QueryRowContext(context.Background(), query).Scan(&n))
	return n
}

const (
	songA = testutil.SongA
	songB = testutil.SongB
	playA = testutil.PlayA
)

func TestScenario_LoadThenTransform(t *testing.T) {
	sources := writeDataset(t, testutil.Dataset{
		Events: map[string][]string{"2018/11/2018-11-02-events.json": {playA}},
		Songs:  map[string]string{"A/A/A/TRAAAAA.json": songA},
	})
	w := newWarehouse(t, sources)

	loaded := w.run(t, ModeLoad)
	assert.Equal(t, []TableCount{
		{Table: catalog.StagingEvents, Rows: 1},
		{Table: catalog.StagingSongs, Rows: 1},
	}, loaded.Counts)
	assert.Equal(t, 0, w.count(t, "SELECT COUNT(*) FROM songplays"), "load leaves the star schema empty")

	w.run(t, ModeTransform)
	ctx := context.Background()

	var userID, level, first string
	require.NoError(t, w.db.DB.QueryRowContext(ctx,
		"SELECT user_id, level, first_name FROM users").Scan(&userID, &level, &first))
	assert.Equal(t, "42", userID)
	assert.Equal(t, "free", level)
	assert.Equal(t, "Ann", first)

	var songID, title, artistID string
	var year, duration int
	require.NoError(t, w.db.DB.QueryRowContext(ctx,
		"SELECT song_id, title, artist_id, year, duration FROM songs").Scan(&songID, &title, &artistID, &year, &duration))
	assert.Equal(t, []any{"S1", "Song A", "AR1", 2000, 210}, []any{songID, title, artistID, year, duration})

	var name string
	require.NoError(t, w.db.DB.QueryRowContext(ctx, "SELECT artist_id, name FROM artists").Scan(&artistID, &name))
	assert.Equal(t, "AR1", artistID)
	assert.Equal(t, "Artist A", name)

	wantStart := time.Date(2018, 11, 2, 1, 25, 34, 796_000_000, time.UTC)
	var start time.Time
	var hour, day, week, month, weekday int
	require.NoError(t, w.db.DB.QueryRowContext(ctx,
		`SELECT start_time, hour, day, week, month, year, weekday FROM "time"`).
		Scan(&start, &hour, &day, &week, &month, &year, &weekday))
	assert.True(t, wantStart.Equal(start), "start_time = %s", start)
	assert.Equal(t, []int{1, 2, 44, 11, 2018, 5}, []int{hour, day, week, month, year, weekday})

	var playStart time.Time
	var playUser, playSong, playArtist string
	var sessionID int
	require.NoError(t, w.db.DB.QueryRowContext(ctx,
		"SELECT start_time, user_id, song_id, artist_id, session_id FROM songplays").
		Scan(&playStart, &playUser, &playSong, &playArtist, &sessionID))
	assert.True(t, wantStart.Equal(playStart))
	assert.Equal(t, "42", playUser)
	assert.Equal(t, "S1", playSong)
	assert.Equal(t, "AR1", playArtist)
	assert.Equal(t, 100, sessionID)
	assert.Equal(t, 0, w.count(t, "SELECT songplay_id FROM songplays"), "surrogate ids start at 0 like IDENTITY(0, 1)")

	for _, tbl := range []string{"users", "songs", "artists", `"time"`, "songplays"} {
		assert.Equal(t, 1, w.count(t, "SELECT COUNT(*) FROM "+tbl), tbl)
	}
}

func TestScenario_Invariants(t *testing.T) {
	upgrade := `{"artist":"Nobody","auth":"Logged In","firstName":"Ann","gender":"F","itemInSession":1,"lastName":"Lee","length":99.0,"level":"paid","location":"NY","method":"PUT","page":"NextSong","registration":1.540919166796E12,"sessionId":101,"song":"Unknown Song","status":200,"ts":1541121999000,"userAgent":"UA","userId":"42"}`
	home := `{"artist":null,"auth":"Logged In","firstName":"Bo","gender":"M","itemInSession":0,"lastName":"Ng","length":null,"level":"free","location":"LA","method":"GET","page":"Home","registration":1.540919166796E12,"sessionId":7,"song":null,"status":200,"ts":1541122000000,"userAgent":"UA","userId":"7"}`
	loggedOut := `{"artist":"Artist A","auth":"Logged Out","firstName":null,"gender":null,"itemInSession":0,"lastName":null,"length":210.5,"level":"free","location":null,"method":"PUT","page":"NextSong","registration":null,"sessionId":8,"song":"Song A","status":200,"ts":1541122100000,"userAgent":null,"userId":""}`

	sources := writeDataset(t, testutil.Dataset{
		Events: map[string][]string{
			"2018/11/2018-11-02-events.json": {playA, upgrade, home, loggedOut},
			"2018/11/2018-11-03-events.json": {playA},
		},
		Songs: map[string]string{
			"A/A/A/TRAAAAA.json": songA,
			"A/A/B/TRAABBB.json": songB,
			"A/B/C/TRABCCC.json": songA,
		},
	})
	w := newWarehouse(t, sources)
	res := w.run(t, ModeFull)

	t.Run("load completeness", func(t *testing.T) {
		assert.Equal(t, 5, w.count(t, "SELECT COUNT(*) FROM staging_events"))
		assert.Equal(t, 3, w.count(t, "SELECT COUNT(*) FROM staging_songs"))
		assert.Contains(t, res.Counts, TableCount{Table: catalog.StagingEvents, Rows: 5})
	})

	t.Run("distinct primary keys", func(t *testing.T) {
		for _, tbl := range w.catalog.Dimensional() {
			pk := tbl.PrimaryKey()
			require.NotEmpty(t, pk)
			q := "SELECT COUNT(*) - COUNT(DISTINCT " + pk + `) FROM "` + tbl.Name + `"`
			assert.Equal(t, 0, w.count(t, q), tbl.Name)
		}
		assert.Equal(t, 2, w.count(t, "SELECT COUNT(*) FROM songs"))
		assert.Equal(t, 1, w.count(t, "SELECT COUNT(*) FROM artists"))
	})

	t.Run("filter correctness", func(t *testing.T) {
		// the duplicate play collapses; Home and logged-out events never qualify
		assert.Equal(t, 2, w.count(t, "SELECT COUNT(*) FROM songplays"))
		assert.Equal(t, 0, w.count(t, "SELECT COUNT(*) FROM users WHERE user_id = '7'"))
		assert.Equal(t, 0, w.count(t, "SELECT COUNT(*) FROM songplays WHERE user_id IS NULL OR user_id = ''"))
	})

	t.Run("most recent level wins", func(t *testing.T) {
		var level string
		require.NoError(t, w.db.DB.QueryRow("SELECT level FROM users WHERE user_id = '42'").Scan(&level))
		assert.Equal(t, "paid", level)
		assert.Equal(t, 1, w.count(t, "SELECT COUNT(*) FROM users"))
	})

	t.Run("left join keeps unmatched plays", func(t *testing.T) {
		var songID, artistID sql.NullString
		require.NoError(t, w.db.DB.QueryRow(
			"SELECT song_id, artist_id FROM songplays WHERE session_id = 101").Scan(&songID, &artistID))
		assert.False(t, songID.Valid)
		assert.False(t, artistID.Valid)
	})

	t.Run("time matches play start times", func(t *testing.T) {
		assert.Equal(t, w.count(t, "SELECT COUNT(DISTINCT start_time) FROM songplays"),
			w.count(t, `SELECT COUNT(*) FROM "time"`))
		assert.Equal(t, 0, w.count(t,
			`SELECT COUNT(*) FROM "time" t LEFT JOIN songplays p ON p.start_time = t.start_time WHERE p.start_time IS NULL`))
	})

	t.Run("durations truncate", func(t *testing.T) {
		assert.Equal(t, 100, w.count(t, "SELECT duration FROM songs WHERE song_id = 'S2'"))
	})
}

func TestScenario_ResetIsIdempotent(t *testing.T) {
	sources := writeDataset(t, testutil.Dataset{
		Events: map[string][]string{"2018/11/events.json": {playA}},
		Songs:  map[string]string{"A/A/A/TRAAAAA.json": songA},
	})
	w := newWarehouse(t, sources)
	ctx := context.Background()

	w.run(t, ModeFull)
	before := map[string][]core.Column{}
	for _, tbl := range w.catalog.Tables() {
		md, err := w.db.GetTableMetadata(ctx, tbl.Name)
		require.NoError(t, err)
		before[tbl.Name] = md.Columns
	}

	// a second load replaces staging rather than appending to it
	w.run(t, ModeLoad)
	for _, tbl := range w.catalog.Tables() {
		md, err := w.db.GetTableMetadata(ctx, tbl.Name)
		require.NoError(t, err)
		assert.Equal(t, before[tbl.Name], md.Columns, tbl.Name)
		if tbl.Kind == core.KindStaging {
			assert.Equal(t, int64(1), md.RowCount, tbl.Name)
		} else {
			assert.Equal(t, int64(0), md.RowCount, tbl.Name)
		}
	}
}

func TestScenario_TransformWithoutLoad(t *testing.T) {
	sources := writeDataset(t, testutil.Dataset{
		Events: map[string][]string{"events.json": {playA}},
		Songs:  map[string]string{"song.json": songA},
	})
	w := newWarehouse(t, sources)

	p, err := New(w.cfg)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), ModeTransform)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTableNotFound)
	assert.Equal(t, 5, res.Count(core.StatementSkipped))
}

func TestScenario_MissingSourcesFailPreflight(t *testing.T) {
	sources := writeDataset(t, testutil.Dataset{Songs: map[string]string{"song.json": songA}})
	w := newWarehouse(t, sources)

	p, err := New(w.cfg)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), ModeLoad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight events: no objects found")

	// nothing was dropped or created
	_, err = w.db.GetTableMetadata(context.Background(), catalog.StagingSongs)
	assert.ErrorIs(t, err, core.ErrTableNotFound)
}

func TestScenario_TransformAfterFullRun(t *testing.T) {
	sources := writeDataset(t, testutil.Dataset{
		Events: map[string][]string{"events.json": {playA}},
		Songs:  map[string]string{"song.json": songA},
	})
	w := newWarehouse(t, sources)
	w.run(t, ModeFull)

	p, err := New(w.cfg)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), ModeTransform)
	require.ErrorIs(t, err, ErrAlreadyTransformed)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 5, res.Count(core.StatementSkipped))
	assert.Zero(t, res.Count(core.StatementSuccess))

	for _, tbl := range []string{"songplays", "users", "songs", "artists", `"time"`} {
		assert.Equal(t, 1, w.count(t, "SELECT COUNT(*) FROM "+tbl), tbl)
	}

	// a load empties the star schema, so the next transform is accepted
	w.run(t, ModeLoad)
	w.run(t, ModeTransform)
	assert.Equal(t, 1, w.count(t, "SELECT COUNT(*) FROM songplays"))
}

func TestScenario_SimultaneousEventsPickOneLevel(t *testing.T) {
	paid := strings.Replace(playA, `"level":"free"`, `"level":"paid"`, 1)
	require.NotEqual(t, playA, paid)

	for _, order := range [][]string{{paid, playA}, {playA, paid}} {
		sources := writeDataset(t, testutil.Dataset{
			Events: map[string][]string{"events.json": order},
			Songs:  map[string]string{"song.json": songA},
		})
		w := newWarehouse(t, sources)
		w.run(t, ModeFull)

		var level string
		require.NoError(t, w.db.DB.QueryRow("SELECT level FROM users WHERE user_id = '42'").Scan(&level))
		assert.Equal(t, "free", level)
		assert.Equal(t, 1, w.count(t, "SELECT COUNT(*) FROM users"))
	}
}
