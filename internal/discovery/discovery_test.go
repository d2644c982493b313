package discovery

import (
	"testing"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

func TestNewReturnsNonNilFinder(t *testing.T) {
	f := New(awsclient.NewFactory())
	if f == nil {
		t.Fatal("expected non-nil finder")
	}
}
