package vrcid

import (
	"encoding/json"
	"errors"
	"testing"
)

const (
	testWorld = "wrld_900dd077-1337-c0fe-babe-71de05ea12c4"
	testUser  = "usr_38116327-5a34-4fd8-ace0-21c93fb3f163"
)

func TestParseRoomID(t *testing.T) {
	room, err := ParseRoomID(testWorld + ":46115~hidden(" + testUser + ")")
	if err != nil {
		t.Fatalf("ParseRoomID() error = %v", err)
	}

	if got := room.World.UUID.String(); got != "900dd077-1337-c0fe-babe-71de05ea12c4" {
		t.Errorf("world uuid = %q", got)
	}
	if room.Instance.ID != 46115 {
		t.Errorf("instance id = %d, want 46115", room.Instance.ID)
	}
	if len(room.Instance.Attributes) != 1 {
		t.Fatalf("got %d attributes, want 1", len(room.Instance.Attributes))
	}
	want := Attribute{Key: "hidden", Value: testUser}
	if room.Instance.Attributes[0] != want {
		t.Errorf("attribute = %+v, want %+v", room.Instance.Attributes[0], want)
	}
}

func TestRoomID_RoundTrip(t *testing.T) {
	tests := []string{
		testWorld + ":0",
		testWorld + ":12345",
		testWorld + ":46115~hidden(" + testUser + ")",
		testWorld + ":1~region(eu)~private(" + testUser + ")",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			room, err := ParseRoomID(in)
			if err != nil {
				t.Fatalf("ParseRoomID(%q) error = %v", in, err)
			}
			if got := room.String(); got != in {
				t.Errorf("String() = %q, want %q", got, in)
			}
		})
	}
}

func TestParseRoomID_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no separator", testWorld},
		{"wrong world prefix", "world_900dd077-1337-c0fe-babe-71de05ea12c4:1"},
		{"bad uuid", "wrld_not-a-uuid:1"},
		{"negative instance", testWorld + ":-1"},
		{"non numeric instance", testWorld + ":abc"},
		{"instance overflow", testWorld + ":4294967296"},
		{"empty instance", testWorld + ":"},
		{"unterminated attribute", testWorld + ":1~region(eu"},
		{"attribute without parens", testWorld + ":1~region"},
		{"trailing tilde", testWorld + ":1~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRoomID(tt.input); err == nil {
				t.Errorf("ParseRoomID(%q) expected error", tt.input)
			}
		})
	}
}

func TestParseRoomID_NoSeparatorSentinel(t *testing.T) {
	_, err := ParseRoomID("garbage")
	if !errors.Is(err, ErrInvalidRoomID) {
		t.Errorf("error = %v, want %v", err, ErrInvalidRoomID)
	}
}

func TestParseWorldID_UppercaseNormalized(t *testing.T) {
	w, err := ParseWorldID("wrld_900DD077-1337-C0FE-BABE-71DE05EA12C4")
	if err != nil {
		t.Fatal(err)
	}
	if w.String() != testWorld {
		t.Errorf("String() = %q, want %q", w.String(), testWorld)
	}
}

func TestInstanceID_EqualIgnoresOrder(t *testing.T) {
	a, err := ParseInstanceID("7~region(eu)~hidden(x)")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseInstanceID("7~hidden(x)~region(eu)")
	if err != nil {
		t.Fatal(err)
	}
	c, err := ParseInstanceID("7~hidden(x)~region(us)")
	if err != nil {
		t.Fatal(err)
	}

	if !a.Equal(b) {
		t.Error("expected instances with reordered attributes to be equal")
	}
	if a.String() == b.String() {
		t.Error("expected textual forms to keep source order")
	}
	if a.Equal(c) {
		t.Error("expected instances with different values to differ")
	}
}

func TestInstanceID_Lookup(t *testing.T) {
	inst, err := ParseInstanceID("7~region(jp)~nested(a(b))")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := inst.Lookup("region"); !ok || v != "jp" {
		t.Errorf("Lookup(region) = %q, %v", v, ok)
	}
	if v, ok := inst.Lookup("nested"); !ok || v != "a(b)" {
		t.Errorf("Lookup(nested) = %q, %v", v, ok)
	}
	if _, ok := inst.Lookup("missing"); ok {
		t.Error("Lookup(missing) ok = true")
	}
}

func TestRoomID_JSON(t *testing.T) {
	in := testWorld + ":46115~hidden(" + testUser + ")"
	room, err := ParseRoomID(in)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(struct {
		Room RoomID  `json:"room"`
		Wrld WorldID `json:"world"`
	}{room, room.World})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"room":"` + in + `","world":"` + testWorld + `"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var decoded RoomID
	if err := json.Unmarshal([]byte(`"`+in+`"`), &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(room) {
		t.Errorf("decoded = %v, want %v", decoded, room)
	}
}

func TestParseUserID(t *testing.T) {
	u, err := ParseUserID(testUser)
	if err != nil {
		t.Fatal(err)
	}
	if u.String() != testUser {
		t.Errorf("String() = %q", u.String())
	}
	if _, err := ParseUserID(testWorld); err == nil {
		t.Error("expected error for world id")
	}
}
