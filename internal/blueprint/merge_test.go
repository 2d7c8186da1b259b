package blueprint

import (
	"errors"
	"strings"
	"testing"
)

func mustJSON(t *testing.T, s string) *Map {
	t.Helper()
	m, err := DecodeJSON([]byte(s))
	if err != nil {
		t.Fatalf("DecodeJSON(%s) error = %v", s, err)
	}
	return m
}

func encodeString(t *testing.T, m *Map) string {
	t.Helper()
	out, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return string(out)
}

func TestMergeCredentials(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		token  string
		region string
		want   string
	}{
		{
			name:  "creates globalConfiguration",
			input: `{"a":1}`,
			token: "TOK",
			want:  `{"a":1,"globalConfiguration":{"ephemeralMode":"TOK"}}`,
		},
		{
			name:  "preserves existing token",
			input: `{"globalConfiguration":{"ephemeralMode":"X"}}`,
			token: "Y",
			want:  `{"globalConfiguration":{"ephemeralMode":"X"}}`,
		},
		{
			name:  "preserves token without environment",
			input: `{"globalConfiguration":{"ephemeralMode":"X"}}`,
			want:  `{"globalConfiguration":{"ephemeralMode":"X"}}`,
		},
		{
			name:  "case-insensitive keys",
			input: `{"GlobalConfiguration":{"EPHEMERALMODE":"X"}}`,
			token: "Y",
			want:  `{"GlobalConfiguration":{"EPHEMERALMODE":"X"}}`,
		},
		{
			name:   "region added alongside token",
			input:  `{}`,
			token:  "TOK",
			region: "eu",
			want:   `{"globalConfiguration":{"ephemeralMode":"TOK","licenseRegion":"eu"}}`,
		},
		{
			name:   "existing region kept",
			input:  `{"globalConfiguration":{"LicenseRegion":"us","ephemeralMode":"X"}}`,
			region: "eu",
			want:   `{"globalConfiguration":{"LicenseRegion":"us","ephemeralMode":"X"}}`,
		},
		{
			name:  "blank token filled in place",
			input: `{"globalConfiguration":{"EphemeralMode":""}}`,
			token: "TOK",
			want:  `{"globalConfiguration":{"EphemeralMode":"TOK"}}`,
		},
		{
			name:   "null region filled in place",
			input:  `{"globalConfiguration":{"ephemeralMode":"X","LICENSEREGION":null}}`,
			region: "eu",
			want:   `{"globalConfiguration":{"ephemeralMode":"X","LICENSEREGION":"eu"}}`,
		},
		{
			name:  "null globalConfiguration replaced",
			input: `{"globalConfiguration":null}`,
			token: "TOK",
			want:  `{"globalConfiguration":{"ephemeralMode":"TOK"}}`,
		},
		{
			name:  "unrelated content untouched",
			input: `{"guardConfigurations":{"g":{"n":1.50}},"globalConfiguration":{"other":[1,"two",null]}}`,
			token: "TOK",
			want:  `{"guardConfigurations":{"g":{"n":1.50}},"globalConfiguration":{"other":[1,"two",null],"ephemeralMode":"TOK"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := mustJSON(t, tt.input)
			before := encodeString(t, in)

			got, err := MergeCredentials(in, tt.token, tt.region)
			if err != nil {
				t.Fatalf("MergeCredentials() error = %v", err)
			}
			if s := encodeString(t, got); s != tt.want {
				t.Errorf("MergeCredentials() = %s, want %s", s, tt.want)
			}
			if after := encodeString(t, in); after != before {
				t.Errorf("input mutated: %s -> %s", before, after)
			}
		})
	}
}

func TestMergeCredentials_MissingToken(t *testing.T) {
	for _, input := range []string{`{}`, `{"globalConfiguration":{}}`, `{"globalConfiguration":{"ephemeralMode":""}}`} {
		got, err := MergeCredentials(mustJSON(t, input), "", "eu")
		if !errors.Is(err, ErrMissingLicenseToken) {
			t.Errorf("MergeCredentials(%s) error = %v, want ErrMissingLicenseToken", input, err)
		}
		if got != nil {
			t.Errorf("MergeCredentials(%s) returned a blueprint on failure", input)
		}
		if err != nil && !strings.Contains(err.Error(), "A4WEB_LICENSE_TOKEN") {
			t.Errorf("error %q does not name the environment variable", err)
		}
	}
}

func TestMergeCredentials_NonObjectGlobal(t *testing.T) {
	_, err := MergeCredentials(mustJSON(t, `{"globalConfiguration":"nope"}`), "TOK", "")
	if !errors.Is(err, ErrInvalidBlueprint) {
		t.Fatalf("error = %v, want ErrInvalidBlueprint", err)
	}
}

func TestMergeCredentials_NilBlueprint(t *testing.T) {
	got, err := MergeCredentials(nil, "TOK", "")
	if err != nil {
		t.Fatalf("MergeCredentials(nil) error = %v", err)
	}
	if s := encodeString(t, got); s != `{"globalConfiguration":{"ephemeralMode":"TOK"}}` {
		t.Errorf("got %s", s)
	}
}

func TestTargetType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{}`, "browser"},
		{`{"globalConfiguration":{}}`, "browser"},
		{`{"globalConfiguration":{"targetType":"NativeScript-iOS"}}`, "nativescript-ios"},
		{`{"GLOBALCONFIGURATION":{"TargetType":"nativescript-android"}}`, "nativescript-android"},
		{`{"globalConfiguration":{"targetType":""}}`, "browser"},
		{`{"globalConfiguration":{"targetType":3}}`, "browser"},
	}

	for _, tt := range tests {
		if got := TargetType(mustJSON(t, tt.input)); got != tt.want {
			t.Errorf("TargetType(%s) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestReplaceTargets(t *testing.T) {
	bp := mustJSON(t, `{"Targets":{"old":{}},"x":1,"TARGETS":[]}`)
	ReplaceTargets(bp, "/in", "/out")

	want := `{"x":1,"targets":{"target":{"input":"/in","outputDirectory":"/out"}}}`
	if got := encodeString(t, bp); got != want {
		t.Errorf("ReplaceTargets() = %s, want %s", got, want)
	}
}

func TestSetGlobalDefault(t *testing.T) {
	bp := mustJSON(t, `{"globalConfiguration":{"AppId":"mine"}}`)
	wrote, err := SetGlobalDefault(bp, KeyAppID, "pkg")
	if err != nil {
		t.Fatalf("SetGlobalDefault() error = %v", err)
	}
	if wrote {
		t.Error("SetGlobalDefault() overwrote an existing appID")
	}

	bp = NewMap()
	if _, err := SetGlobalDefault(bp, KeyAppID, "pkg"); err != nil {
		t.Fatalf("SetGlobalDefault() error = %v", err)
	}
	if got := encodeString(t, bp); got != `{"globalConfiguration":{"appID":"pkg"}}` {
		t.Errorf("got %s", got)
	}
}

func TestDefault(t *testing.T) {
	if got := encodeString(t, Default()); got != `{"guardConfigurations":{"guardConfiguration":{}}}` {
		t.Errorf("Default() = %s", got)
	}
}
