package domain

import (
	"reflect"
	"testing"
)

func TestTorrentStateConstants(t *testing.T) {
	if StateChecking != "checking" {
		t.Fatalf("StateChecking = %q", StateChecking)
	}
	if StateDownloading != "downloading" {
		t.Fatalf("StateDownloading = %q", StateDownloading)
	}
	if StateFinished != "finished" {
		t.Fatalf("StateFinished = %q", StateFinished)
	}
	if StateSeeding != "seeding" {
		t.Fatalf("StateSeeding = %q", StateSeeding)
	}
	if StatePaused != "paused" {
		t.Fatalf("StatePaused = %q", StatePaused)
	}
	if StateError != "error" {
		t.Fatalf("StateError = %q", StateError)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TorrentState
		want     bool
	}{
		{StateChecking, StateDownloading, true},
		{StateChecking, StateSeeding, true},
		{StateChecking, StateError, true},
		{StateChecking, StateFinished, false},
		{StateChecking, StatePaused, false},
		{StateDownloading, StateFinished, true},
		{StateDownloading, StatePaused, true},
		{StateDownloading, StateError, true},
		{StateDownloading, StateSeeding, false},
		{StateFinished, StateSeeding, true},
		{StateFinished, StatePaused, false},
		{StateFinished, StateError, false},
		{StateSeeding, StatePaused, true},
		{StateSeeding, StateError, true},
		{StateSeeding, StateDownloading, false},
		{StatePaused, StateDownloading, true},
		{StatePaused, StateSeeding, true},
		{StatePaused, StateError, false},
		{StateError, StateChecking, true},
		{StateError, StateDownloading, false},
		{StateError, StateSeeding, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTorrentStateValid(t *testing.T) {
	for _, s := range []TorrentState{StateChecking, StateDownloading, StateFinished, StateSeeding, StatePaused, StateError} {
		if !s.Valid() {
			t.Fatalf("%s not valid", s)
		}
	}
	if TorrentState("stalled").Valid() {
		t.Fatal("unknown state reported valid")
	}
	if TorrentState("").Valid() {
		t.Fatal("empty state reported valid")
	}
}

func TestEventTypeString(t *testing.T) {
	cases := map[EventType]string{
		EventMetadata:  "metadata",
		EventChecked:   "checked",
		EventProgress:  "progress",
		EventCompleted: "completed",
		EventSeeding:   "seeding",
		EventError:     "error",
		EventType(99):  "unknown",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Fatalf("EventType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}

func TestTorrentRecordValidate(t *testing.T) {
	ok := TorrentRecord{ID: "a1", Magnet: "magnet:?xt=urn:btih:aa", State: StateChecking, TotalBytes: 10, DoneBytes: 5}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	cases := []struct {
		name string
		rec  TorrentRecord
	}{
		{"missing id", TorrentRecord{Magnet: "magnet:?xt=urn:btih:aa", State: StateChecking}},
		{"missing source", TorrentRecord{ID: "a1", State: StateChecking}},
		{"negative total", TorrentRecord{ID: "a1", Magnet: "m", State: StateChecking, TotalBytes: -1}},
		{"negative done", TorrentRecord{ID: "a1", Magnet: "m", State: StateChecking, DoneBytes: -1}},
		{"done exceeds total", TorrentRecord{ID: "a1", Magnet: "m", State: StateChecking, TotalBytes: 1, DoneBytes: 2}},
		{"missing state", TorrentRecord{ID: "a1", Magnet: "m"}},
		{"unknown state", TorrentRecord{ID: "a1", Magnet: "m", State: "stalled"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.rec.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTorrentStatusJSONTags(t *testing.T) {
	expectJSONTag(t, TorrentStatus{}, "ID", "id")
	expectJSONTag(t, TorrentStatus{}, "Name", "name")
	expectJSONTag(t, TorrentStatus{}, "State", "state")
	expectJSONTag(t, TorrentStatus{}, "Progress", "progress")
	expectJSONTag(t, TorrentStatus{}, "TotalWanted", "totalWanted")
	expectJSONTag(t, TorrentStatus{}, "TotalWantedDone", "totalWantedDone")
	expectJSONTag(t, TorrentStatus{}, "DownloadRate", "downloadRate")
	expectJSONTag(t, TorrentStatus{}, "UploadRate", "uploadRate")
	expectJSONTag(t, TorrentStatus{}, "Peers", "peers")
	expectJSONTag(t, TorrentStatus{}, "Seeds", "seeds")
	expectJSONTag(t, TorrentStatus{}, "IsSeeding", "isSeeding")
	expectJSONTag(t, TorrentStatus{}, "IsPaused", "isPaused")
	expectJSONTag(t, TorrentStatus{}, "HasError", "hasError")
	expectJSONTag(t, TorrentStatus{}, "Error", "error,omitempty")
}

func TestTorrentRecordJSONTags(t *testing.T) {
	expectJSONTag(t, TorrentRecord{}, "ID", "id")
	expectJSONTag(t, TorrentRecord{}, "Name", "name")
	expectJSONTag(t, TorrentRecord{}, "State", "state")
	expectJSONTag(t, TorrentRecord{}, "Magnet", "magnet,omitempty")
	expectJSONTag(t, TorrentRecord{}, "MetaInfo", "-")
	expectJSONTag(t, TorrentRecord{}, "SavePath", "savePath")
	expectJSONTag(t, TorrentRecord{}, "TotalBytes", "totalBytes")
	expectJSONTag(t, TorrentRecord{}, "DoneBytes", "doneBytes")
	expectJSONTag(t, TorrentRecord{}, "AddedAt", "addedAt")
	expectJSONTag(t, TorrentRecord{}, "UpdatedAt", "updatedAt")
}

func expectJSONTag(t *testing.T, v interface{}, fieldName, want string) {
	t.Helper()
	typ := reflect.TypeOf(v)
	field, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("missing field %s", fieldName)
	}
	if got := field.Tag.Get("json"); got != want {
		t.Fatalf("%s json tag = %q, want %q", fieldName, got, want)
	}
}
