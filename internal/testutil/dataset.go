package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// EventJSONPaths maps event log fields onto the staging_events columns.
const EventJSONPaths = `{
    "jsonpaths": [
        "$['artist']",
        "$['auth']",
        "$['firstName']",
        "$['gender']",
        "$['itemInSession']",
        "$['lastName']",
        "$['length']",
        "$['level']",
        "$['location']",
        "$['method']",
        "$['page']",
        "$['registration']",
        "$['sessionId']",
        "$['song']",
        "$['status']",
        "$['ts']",
        "$['userAgent']",
        "$['userId']"
    ]
}`

// Sample records. PlayA is a NextSong event by user 42 at
// 2018-11-02 01:25:34.796 UTC for SongA.
const (
	SongA = `{"num_songs": 1, "artist_id": "AR1", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Artist A", "song_id": "S1", "title": "Song A", "duration": 210.5, "year": 2000}`
	SongB = `{"num_songs": 1, "artist_id": "AR1", "artist_latitude": 40.71, "artist_longitude": -74.0, "artist_location": "New York", "artist_name": "Artist A", "song_id": "S2", "title": "Song B", "duration": 100.9, "year": 0}`

	PlayA = `{"artist":"Artist A","auth":"Logged In","firstName":"Ann","gender":"F","itemInSession":0,"lastName":"Lee","length":210.5,"level":"free","location":"NY","method":"PUT","page":"NextSong","registration":1.540919166796E12,"sessionId":100,"song":"Song A","status":200,"ts":1541121934796,"userAgent":"UA","userId":"42"}`
)

// Dataset lays out source files the way the public song and log
// datasets do.
type Dataset struct {
	Events map[string][]string // relative path -> JSON lines
	Songs  map[string]string   // relative path -> JSON document
}

// SourcePaths locates a written dataset.
type SourcePaths struct {
	Root        string
	LogData     string
	LogJSONPath string
	SongData    string
}

// Write writes the dataset under a fresh temp dir, together with the
// event JSON-path mapping file.
func (ds Dataset) Write(t testing.TB) SourcePaths {
	t.Helper()
	root := t.TempDir()

	writeFile := func(path, content string) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	for rel, lines := range ds.Events {
		writeFile(filepath.Join(root, "log_data", rel), strings.Join(lines, "\n")+"\n")
	}
	for rel, doc := range ds.Songs {
		writeFile(filepath.Join(root, "song_data", rel), doc)
	}
	writeFile(filepath.Join(root, "log_json_path.json"), EventJSONPaths)

	return SourcePaths{
		Root:        root,
		LogData:     filepath.Join(root, "log_data"),
		LogJSONPath: filepath.Join(root, "log_json_path.json"),
		SongData:    filepath.Join(root, "song_data"),
	}
}

// Minimal returns a dataset with one play of one song.
func Minimal() Dataset {
	return Dataset{
		Events: map[string][]string{"2018/11/2018-11-02-events.json": {PlayA}},
		Songs:  map[string]string{"A/A/A/TRAAAAA.json": SongA},
	}
}
