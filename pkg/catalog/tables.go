package catalog

import "github.com/leapstack-labs/leapdwh/pkg/core"

// Table names.
const (
	StagingEvents = "staging_events"
	StagingSongs  = "staging_songs"
	SongPlays     = "songplays"
	Users         = "users"
	Songs         = "songs"
	Artists       = "artists"
	Time          = "time"
)

func str(name string) core.ColumnDef   { return core.ColumnDef{Name: name, Type: core.TypeString} }
func num(name string) core.ColumnDef   { return core.ColumnDef{Name: name, Type: core.TypeInteger} }
func float(name string) core.ColumnDef { return core.ColumnDef{Name: name, Type: core.TypeFloat} }

func sortKey(c core.ColumnDef) core.ColumnDef {
	c.SortKey = true
	return c
}

func primaryKey(c core.ColumnDef) core.ColumnDef {
	c.PrimaryKey = true
	c.NotNull = true
	c.SortKey = true
	return c
}

func notNull(c core.ColumnDef) core.ColumnDef {
	c.NotNull = true
	return c
}

var gender = core.ColumnDef{Name: "gender", Type: core.TypeChar, Length: 1}

// tables lists every table in creation order. Column order of the staging
// tables matches the JSON-path mapping of the event log.
var tables = []*core.TableDef{
	{
		Name: StagingEvents,
		Kind: core.KindStaging,
		Columns: []core.ColumnDef{
			str("artist"),
			str("auth"),
			str("first_name"),
			gender,
			num("session_item"),
			str("last_name"),
			float("length"),
			str("level"),
			str("location"),
			str("method"),
			str("page"),
			{Name: "registration", Type: core.TypeBigInt},
			num("session_id"),
			str("song"),
			num("status"),
			sortKey(core.ColumnDef{Name: "ts", Type: core.TypeBigInt}),
			str("user_agent"),
			num("user_id"),
		},
	},
	{
		Name: StagingSongs,
		Kind: core.KindStaging,
		Columns: []core.ColumnDef{
			str("artist_id"),
			str("artist_location"),
			float("artist_latitude"),
			float("artist_longitude"),
			str("artist_name"),
			float("duration"),
			num("num_songs"),
			str("song_id"),
			str("title"),
			num("year"),
		},
	},
	{
		Name:      SongPlays,
		Kind:      core.KindFact,
		DistStyle: core.DistAuto,
		Columns: []core.ColumnDef{
			{Name: "songplay_id", Type: core.TypeInteger, Identity: true, PrimaryKey: true, NotNull: true, SortKey: true},
			notNull(core.ColumnDef{Name: "start_time", Type: core.TypeTimestamp}),
			notNull(str("user_id")),
			str("level"),
			str("song_id"),
			str("artist_id"),
			num("session_id"),
			str("location"),
			str("user_agent"),
		},
	},
	{
		Name:      Users,
		Kind:      core.KindDimension,
		DistStyle: core.DistAuto,
		Columns: []core.ColumnDef{
			primaryKey(str("user_id")),
			str("first_name"),
			str("last_name"),
			gender,
			str("level"),
		},
	},
	{
		Name:      Songs,
		Kind:      core.KindDimension,
		DistStyle: core.DistAuto,
		Columns: []core.ColumnDef{
			primaryKey(str("song_id")),
			str("title"),
			str("artist_id"),
			num("year"),
			num("duration"),
		},
	},
	{
		Name:      Artists,
		Kind:      core.KindDimension,
		DistStyle: core.DistAuto,
		Columns: []core.ColumnDef{
			primaryKey(str("artist_id")),
			str("name"),
			str("location"),
			float("latitude"),
			float("longitude"),
		},
	},
	{
		Name:      Time,
		Kind:      core.KindDimension,
		DistStyle: core.DistAuto,
		Columns: []core.ColumnDef{
			primaryKey(core.ColumnDef{Name: "start_time", Type: core.TypeTimestamp}),
			num("hour"),
			num("day"),
			num("week"),
			num("month"),
			num("year"),
			num("weekday"),
		},
	},
}
