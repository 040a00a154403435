package transform

import (
	"github.com/leapstack-labs/leapdwh/pkg/catalog"
	"github.com/leapstack-labs/leapdwh/pkg/core"
)

var (
	events = core.Relation{Table: catalog.StagingEvents, Alias: "e"}
	songs  = core.Relation{Table: catalog.StagingSongs, Alias: "s"}
)

func ev(col string) core.Ref { return core.Ref{Alias: events.Alias, Column: col} }
func sg(col string) core.Ref { return core.Ref{Alias: songs.Alias, Column: col} }

// startTime is the event time derived from the millisecond epoch.
var startTime = core.EpochMillis{Arg: ev("ts")}

// songPlayEvents selects the events that count as plays.
var songPlayEvents = []core.Predicate{
	core.Equals{Left: ev("page"), Value: "NextSong"},
	core.Present{Arg: ev("user_id")},
}

func extract(f core.DateField) core.Expr {
	return core.Extract{Field: f, Arg: startTime}
}

// rules lists the transforms in execution order.
var rules = []core.Transform{
	{
		Name:   catalog.SongPlays,
		Target: catalog.SongPlays,
		From:   events,
		Joins: []core.Join{{
			Kind:     core.JoinLeft,
			Relation: songs,
			On: []core.JoinOn{
				{Left: ev("song"), Right: sg("title")},
				{Left: ev("artist"), Right: sg("artist_name")},
			},
		}},
		Where: songPlayEvents,
		Select: []core.Projection{
			{Column: "start_time", Expr: startTime},
			{Column: "user_id", Expr: ev("user_id")},
			{Column: "level", Expr: ev("level")},
			{Column: "song_id", Expr: sg("song_id")},
			{Column: "artist_id", Expr: sg("artist_id")},
			{Column: "session_id", Expr: ev("session_id")},
			{Column: "location", Expr: ev("location")},
			{Column: "user_agent", Expr: ev("user_agent")},
		},
		Distinct: true,
	},
	{
		Name:   catalog.Users,
		Target: catalog.Users,
		From:   events,
		Where:  songPlayEvents,
		Select: []core.Projection{
			{Column: "user_id", Expr: ev("user_id")},
			{Column: "first_name", Expr: ev("first_name")},
			{Column: "last_name", Expr: ev("last_name")},
			{Column: "gender", Expr: ev("gender")},
			{Column: "level", Expr: ev("level")},
		},
		// a user's most recent event decides their level; events at the
		// same instant fall back to column order
		Dedupe: &core.Dedupe{
			Key: []core.Expr{ev("user_id")},
			Prefer: []core.Order{
				{Expr: ev("ts"), Desc: true},
				{Expr: ev("level")},
				{Expr: ev("first_name")},
				{Expr: ev("last_name")},
			},
		},
	},
	{
		Name:   catalog.Songs,
		Target: catalog.Songs,
		From:   songs,
		Where:  []core.Predicate{core.Present{Arg: sg("song_id")}},
		Select: []core.Projection{
			{Column: "song_id", Expr: sg("song_id")},
			{Column: "title", Expr: sg("title")},
			{Column: "artist_id", Expr: sg("artist_id")},
			{Column: "year", Expr: sg("year")},
			{Column: "duration", Expr: sg("duration")},
		},
		Dedupe: &core.Dedupe{
			Key: []core.Expr{sg("song_id")},
			Prefer: []core.Order{
				{Expr: sg("title")},
				{Expr: sg("year")},
				{Expr: sg("duration")},
			},
		},
	},
	{
		Name:   catalog.Artists,
		Target: catalog.Artists,
		From:   songs,
		Where:  []core.Predicate{core.Present{Arg: sg("artist_id")}},
		Select: []core.Projection{
			{Column: "artist_id", Expr: sg("artist_id")},
			{Column: "name", Expr: sg("artist_name")},
			{Column: "location", Expr: sg("artist_location")},
			{Column: "latitude", Expr: sg("artist_latitude")},
			{Column: "longitude", Expr: sg("artist_longitude")},
		},
		Dedupe: &core.Dedupe{
			Key: []core.Expr{sg("artist_id")},
			Prefer: []core.Order{
				{Expr: sg("artist_name")},
				{Expr: sg("artist_location")},
			},
		},
	},
	{
		Name:   catalog.Time,
		Target: catalog.Time,
		From:   events,
		Where:  songPlayEvents,
		Select: []core.Projection{
			{Column: "start_time", Expr: startTime},
			{Column: "hour", Expr: extract(core.FieldHour)},
			{Column: "day", Expr: extract(core.FieldDay)},
			{Column: "week", Expr: extract(core.FieldWeek)},
			{Column: "month", Expr: extract(core.FieldMonth)},
			{Column: "year", Expr: extract(core.FieldYear)},
			{Column: "weekday", Expr: extract(core.FieldWeekday)},
		},
		Distinct: true,
	},
}
