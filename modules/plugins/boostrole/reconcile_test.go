package boostrole

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/boostrole/boostrole/models"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

func testReconciler(api *fakeAPI, store *fakeStore, ownerID string) (*Reconciler, *[]models.SweepSummary) {
	workflow := NewWorkflow(api, store, ownerID)

	ready := make(chan struct{})
	close(ready)

	r := NewReconciler(api, store, workflow, time.Hour, ready, ownerID)

	summaries := &[]models.SweepSummary{}
	r.publishSummary = func(summary models.SweepSummary) {
		*summaries = append(*summaries, summary)
	}

	return r, summaries
}

func TestSweepRemovesLapsedBooster(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	api.addGuild("g1", "guild-owner")
	api.addMember("g1", "lapsed", false, "r1")
	api.addMember("g1", "active", true, "r2")
	api.addRole("g1", "r1", 0)
	api.addRole("g1", "r2", 0)
	lapsed := store.mustInsert(t, entryFixture("g1", "r1", "lapsed"))
	active := store.mustInsert(t, entryFixture("g1", "r2", "active"))

	r, summaries := testReconciler(api, store, "")
	r.Sweep(context.Background())

	if _, ok := store.entries[lapsed.ID]; ok {
		t.Error("lapsed booster entry still tracked")
	}
	if _, ok := store.entries[active.ID]; !ok {
		t.Error("active booster entry got removed")
	}
	if len(api.deletedRoles) != 1 || api.deletedRoles[0] != "r1" {
		t.Errorf("deleted roles = %v, want [r1]", api.deletedRoles)
	}

	if len(*summaries) != 1 {
		t.Fatalf("published %d summaries, want 1", len(*summaries))
	}
	summary := (*summaries)[0]
	if summary.GuildID != "g1" || summary.TrackedRoles != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.RemovedUsers) != 1 || summary.RemovedUsers[0] != "lapsed" {
		t.Errorf("removed users = %v, want [lapsed]", summary.RemovedUsers)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	api.addGuild("g1", "guild-owner")
	api.addMember("g1", "lapsed", false, "r1")
	api.addRole("g1", "r1", 0)
	store.mustInsert(t, entryFixture("g1", "r1", "lapsed"))

	r, _ := testReconciler(api, store, "")
	r.Sweep(context.Background())
	deletesAfterFirst := len(api.deletedRoles)

	r.Sweep(context.Background())

	if len(api.deletedRoles) != deletesAfterFirst {
		t.Errorf("second sweep deleted more roles: %v", api.deletedRoles)
	}
}

func TestSweepKeepsQualifyingMembers(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	api.addGuild("g1", "guild-owner")
	api.addRole("g1", "mod", discordgo.PermissionManageRoles)
	api.addRole("g1", "exempt", 0)
	api.addRole("g1", "r1", 0)
	api.addRole("g1", "r2", 0)
	api.addRole("g1", "r3", 0)
	api.addRole("g1", "r4", 0)
	api.addMember("g1", "guild-owner", false, "r1")
	api.addMember("g1", "a-mod", false, "mod", "r2")
	api.addMember("g1", "exempted", false, "exempt", "r3")
	api.addMember("g1", "override", false, "r4")
	store.mustInsert(t, entryFixture("g1", "r1", "guild-owner"))
	store.mustInsert(t, entryFixture("g1", "r2", "a-mod"))
	store.mustInsert(t, entryFixture("g1", "r3", "exempted"))
	store.mustInsert(t, entryFixture("g1", "r4", "override"))
	store.settings["g1"] = models.BoostRoleSettings{
		GuildID:        "g1",
		RemoveRoles:    true,
		AllowedRoleIDs: []string{"exempt"},
	}

	r, _ := testReconciler(api, store, "override")
	r.Sweep(context.Background())

	if len(api.deletedRoles) != 0 {
		t.Errorf("deleted roles = %v, want none", api.deletedRoles)
	}
	if len(store.entries) != 4 {
		t.Errorf("store holds %d entries, want 4", len(store.entries))
	}
}

func TestSweepSkipsGuildWithRemovalOff(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	api.addGuild("g1", "guild-owner")
	api.addMember("g1", "lapsed", false, "r1")
	api.addRole("g1", "r1", 0)
	store.mustInsert(t, entryFixture("g1", "r1", "lapsed"))
	store.settings["g1"] = models.BoostRoleSettings{GuildID: "g1", RemoveRoles: false}

	r, summaries := testReconciler(api, store, "")
	r.Sweep(context.Background())

	if len(api.deletedRoles) != 0 {
		t.Errorf("deleted roles = %v, want none", api.deletedRoles)
	}
	if len(*summaries) != 0 {
		t.Error("published a summary for a skipped guild")
	}
}

func TestSweepPaginationBoundary(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	api.addGuild("g1", "guild-owner")
	// exactly one full page of members, all boosting
	for i := 0; i < memberPageSize; i++ {
		api.addMember("g1", "m"+strconv.Itoa(i), true)
	}
	api.addRole("g1", "r1", 0)
	store.mustInsert(t, entryFixture("g1", "r1", "m0"))

	r, _ := testReconciler(api, store, "")
	r.Sweep(context.Background())

	// the full page forces a second call, the empty page terminates
	if api.listCalls != 2 {
		t.Errorf("ListMembers called %d times, want exactly 2", api.listCalls)
	}
	if len(api.deletedRoles) != 0 {
		t.Errorf("deleted roles = %v, want none", api.deletedRoles)
	}
}

func TestSweepToleratesUnknownRole(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	api.addGuild("g1", "guild-owner")
	api.addMember("g1", "lapsed", false)
	entry := store.mustInsert(t, entryFixture("g1", "r-gone", "lapsed"))

	api.deleteRoleErr = func(roleID string) error {
		return unknownRoleError()
	}

	r, _ := testReconciler(api, store, "")
	r.Sweep(context.Background())

	// the role being gone already counts as a successful removal
	if _, ok := store.entries[entry.ID]; ok {
		t.Error("entry survived although the role is already gone")
	}
}

func TestSweepKeepsEntryOnDeleteFailure(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	api.addGuild("g1", "guild-owner")
	api.addMember("g1", "lapsed", false, "r1")
	api.addRole("g1", "r1", 0)
	entry := store.mustInsert(t, entryFixture("g1", "r1", "lapsed"))

	api.deleteRoleErr = func(roleID string) error {
		return errors.New("api down")
	}

	r, _ := testReconciler(api, store, "")
	r.Sweep(context.Background())

	// the record stays so the next sweep retries the delete
	if _, ok := store.entries[entry.ID]; !ok {
		t.Error("entry got removed although the role delete failed")
	}
}

func TestSweepRecreatesOverrideOwnerRole(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	api.addGuild("g1", "guild-owner")
	api.addMember("g1", "override", false)
	// the stored role no longer exists on the server
	entry := store.mustInsert(t, entryFixture("g1", "r-gone", "override"))

	r, summaries := testReconciler(api, store, "override")
	r.Sweep(context.Background())

	if len(api.createdRoles) != 1 {
		t.Fatalf("created %d roles, want 1", len(api.createdRoles))
	}

	updated := store.entries[entry.ID]
	if updated.RoleID != api.createdRoles[0].ID {
		t.Errorf("stored role id = %q, want the recreated id %q", updated.RoleID, api.createdRoles[0].ID)
	}

	if len(*summaries) != 1 || !(*summaries)[0].Recreated {
		t.Error("summary does not report the recreation")
	}
}

func TestSweepIsolatesGuildFailures(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	api.addGuild("bad", "guild-owner")
	api.addGuild("good", "guild-owner")
	api.addMember("good", "lapsed", false, "r2")
	api.addRole("good", "r2", 0)
	store.mustInsert(t, entryFixture("bad", "r1", "u1"))
	store.mustInsert(t, entryFixture("good", "r2", "lapsed"))
	store.settingsErr = map[string]error{"bad": errors.New("settings unavailable")}

	r, _ := testReconciler(api, store, "")
	r.Sweep(context.Background())

	// the failing guild must not keep the healthy one from being swept
	if len(api.deletedRoles) != 1 || api.deletedRoles[0] != "r2" {
		t.Errorf("deleted roles = %v, want [r2]", api.deletedRoles)
	}
}

func TestRunStopsBeforeReady(t *testing.T) {
	api := newFakeAPI()
	store := newFakeStore()
	workflow := NewWorkflow(api, store, "")

	ready := make(chan struct{}) // never opens
	r := NewReconciler(api, store, workflow, time.Hour, ready, "")
	r.publishSummary = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on context cancellation")
	}

	if api.listCalls != 0 {
		t.Error("swept before the readiness gate opened")
	}
}
