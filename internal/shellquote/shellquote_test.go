package shellquote

import "testing"

func TestJoinQuotesOnlyWhenNeeded(t *testing.T) {
	got := Join([]string{"my app", "--file=/tmp/a'b"})
	want := `'my app' '--file=/tmp/a'\''b'`
	if got != want {
		t.Fatalf("Join() = %q, want %q", got, want)
	}
}

func TestJoinLeavesSafeArgsBare(t *testing.T) {
	got := Join([]string{"/usr/bin/app", "--flag=value", "-x"})
	want := "/usr/bin/app --flag=value -x"
	if got != want {
		t.Fatalf("Join() = %q, want %q", got, want)
	}
}
