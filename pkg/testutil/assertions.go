package testutil

import (
	"reflect"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cmdpanel/pkg/model"
)

// T is the subset of testing.TB used by the assertions. *rapid.T satisfies
// it too, so property tests can share them.
type T interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
}

// AssertGroupOrder verifies group Order values are 0..n-1 matching position.
func AssertGroupOrder(t T, groups []model.Group) {
	t.Helper()
	for i, g := range groups {
		if g.Order != i {
			t.Fatalf("group %s at index %d has order %d (orders: %v)", g.ID, i, g.Order, GroupOrders(groups))
		}
	}
}

// AssertCommandOrder verifies command Order values in g are 0..n-1 matching
// position.
func AssertCommandOrder(t T, g model.Group) {
	t.Helper()
	for i, c := range g.Commands {
		if c.Order != i {
			t.Fatalf("group %s: command %s at index %d has order %d", g.ID, c.CommandID, i, c.Order)
		}
	}
}

// AssertCommandIDs verifies the command ids of g, in order.
func AssertCommandIDs(t T, g model.Group, want ...string) {
	t.Helper()
	got := CommandIDs(g)
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("group %s commands = [%s], want [%s]", g.ID, strings.Join(got, " "), strings.Join(want, " "))
	}
}

// AssertStrings verifies a string slice, in order.
func AssertStrings(t T, got []string, want ...string) {
	t.Helper()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got [%s], want [%s]", strings.Join(got, " "), strings.Join(want, " "))
	}
}

// AssertJSONEqual compares two values after JSON marshalling.
func AssertJSONEqual(t T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// CommandIDs returns the command ids of g in order.
func CommandIDs(g model.Group) []string {
	ids := make([]string, len(g.Commands))
	for i, c := range g.Commands {
		ids[i] = c.CommandID
	}
	return ids
}

// GroupOrders returns the Order values of groups in position order.
func GroupOrders(groups []model.Group) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.Order
	}
	return out
}
