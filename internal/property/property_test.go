package property

import "testing"

func TestSetReplacesByName(t *testing.T) {
	s := NewStore()
	s.Set(Property{Name: SmProgram, Type: TypeByteStringList, Values: [][]byte{[]byte("a")}})
	s.Set(Property{Name: SmProgram, Type: TypeByteStringList, Values: [][]byte{[]byte("b")}})

	got := s.Program()
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("Program() = %v, want [b]", got)
	}
}

func TestDelete(t *testing.T) {
	s := NewStore()
	s.Set(Property{Name: SmProgram, Type: TypeByteStringList, Values: [][]byte{[]byte("a")}})
	s.Delete(SmProgram)

	if _, ok := s.Get(SmProgram); ok {
		t.Fatal("expected SmProgram to be deleted")
	}
}

func TestRestartStyleHintDefault(t *testing.T) {
	s := NewStore()
	if got := s.RestartStyleHint(); got != RestartIfRunning {
		t.Fatalf("RestartStyleHint() = %d, want %d (absent)", got, RestartIfRunning)
	}

	s.Set(Property{Name: SmRestartStyleHint, Type: TypeByte, Values: [][]byte{{0xFF}}})
	if got := s.RestartStyleHint(); got != RestartIfRunning {
		t.Fatalf("RestartStyleHint() = %d, want %d (malformed)", got, RestartIfRunning)
	}

	s.Set(Property{Name: SmRestartStyleHint, Type: TypeByte, Values: [][]byte{{RestartNever}}})
	if got := s.RestartStyleHint(); got != RestartNever {
		t.Fatalf("RestartStyleHint() = %d, want %d", got, RestartNever)
	}
}

func TestProcessIDOverflowAndGarbage(t *testing.T) {
	cases := []struct {
		name string
		val  string
		want uint32
	}{
		{"overflow", "4294967296", 0},
		{"trailing garbage", "12a", 0},
		{"valid", "42", 42},
		{"absent", "", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			if tc.val != "" {
				s.Set(Property{Name: SmProcessID, Type: TypeByteString, Values: [][]byte{[]byte(tc.val)}})
			}
			if got := s.ProcessID(); got != tc.want {
				t.Errorf("ProcessID() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDesktopFileURI(t *testing.T) {
	s := NewStore()
	if got := s.DesktopFileURI(); got != "" {
		t.Fatalf("DesktopFileURI() = %q, want empty", got)
	}
	s.Set(Property{Name: GsmDesktopFile, Type: TypeByteString, Values: [][]byte{[]byte("file:///tmp/x.desktop")}})
	if got := s.DesktopFileURI(); got != "file:///tmp/x.desktop" {
		t.Fatalf("DesktopFileURI() = %q", got)
	}
}
