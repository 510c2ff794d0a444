package applications

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/storage"
	"github.com/R3E-Network/app_registry/internal/app/storage/memory"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }

func seed() []application.Application {
	return []application.Application{
		{AppName: "appOne", AppData: application.Data{AppPath: "/appSix", AppOwner: "Osman", IsValid: true}},
		{AppName: "appTwo", AppData: application.Data{AppPath: "/appTwo", AppOwner: "Emirates", IsValid: false}},
		{AppName: "appThree", AppData: application.Data{AppPath: "/appThree", AppOwner: "osman ltd", IsValid: false}},
	}
}

func newService(t *testing.T, apps []application.Application) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewWithApps(apps)
	return New(store, logger.NewNop()), store
}

func rawDocument(t *testing.T, store *memory.Store) []byte {
	t.Helper()
	raw, err := store.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	return raw
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, []application.Application{
		{AppName: "appOne", AppData: application.Data{AppPath: "/p1", AppOwner: "Osman", IsValid: true}},
	})

	matches, err := svc.Search(ctx, application.Criteria{AppOwner: "osm"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 || matches[0].AppName != "appOne" {
		t.Fatalf("search = %+v, want appOne", matches)
	}

	updated, found, err := svc.Update(ctx, "appOne", application.Patch{IsValid: boolPtr(false)})
	if err != nil || !found {
		t.Fatalf("update: found=%v err=%v", found, err)
	}
	if updated.AppData.AppOwner != "Osman" || updated.AppData.IsValid {
		t.Fatalf("updated = %+v", updated)
	}

	removed, found, err := svc.Delete(ctx, "appOne")
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	if removed != updated {
		t.Fatalf("removed = %+v, want %+v", removed, updated)
	}

	all, err := svc.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Fatalf("load all = %#v, want empty non-nil", all)
	}
}

func TestLoadAllPreservesOrder(t *testing.T) {
	svc, _ := newService(t, seed())
	all, err := svc.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	for i, want := range seed() {
		if all[i] != want {
			t.Fatalf("record %d = %+v, want %+v", i, all[i], want)
		}
	}
}

func TestFindByNameIsExact(t *testing.T) {
	svc, _ := newService(t, seed())
	ctx := context.Background()

	app, found, err := svc.FindByName(ctx, "appTwo")
	if err != nil || !found || app.AppData.AppOwner != "Emirates" {
		t.Fatalf("find appTwo: app=%+v found=%v err=%v", app, found, err)
	}
	for _, name := range []string{"apptwo", "app", "", "appTwo "} {
		if _, found, err := svc.FindByName(ctx, name); err != nil || found {
			t.Fatalf("find %q: found=%v err=%v", name, found, err)
		}
	}
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t, seed())
	ctx := context.Background()

	cases := []struct {
		name     string
		criteria application.Criteria
		want     []string
	}{
		{"empty criteria returns all", application.Criteria{}, []string{"appOne", "appTwo", "appThree"}},
		{"owner substring ignores case", application.Criteria{AppOwner: "OSMAN"}, []string{"appOne", "appThree"}},
		{"name substring", application.Criteria{AppName: "two"}, []string{"appTwo"}},
		{"validity true", application.Criteria{IsValid: boolPtr(true)}, []string{"appOne"}},
		{"validity false", application.Criteria{IsValid: boolPtr(false)}, []string{"appTwo", "appThree"}},
		{"conjunction", application.Criteria{AppOwner: "osman", IsValid: boolPtr(false)}, []string{"appThree"}},
		{"no match", application.Criteria{AppName: "zzz"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Search(ctx, tc.criteria)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if got == nil {
				t.Fatalf("search returned nil slice")
			}
			if len(got) != len(tc.want) {
				t.Fatalf("search = %+v, want %v", got, tc.want)
			}
			for i, name := range tc.want {
				if got[i].AppName != name {
					t.Fatalf("result %d = %s, want %s", i, got[i].AppName, name)
				}
			}
		})
	}
}

func TestSearchValidityTextMatchesBoolean(t *testing.T) {
	svc, _ := newService(t, seed())
	ctx := context.Background()

	fromBool, err := svc.Search(ctx, application.Criteria{IsValid: application.ParseValidity(true)})
	if err != nil {
		t.Fatalf("search bool: %v", err)
	}
	fromText, err := svc.Search(ctx, application.Criteria{IsValid: application.ParseValidity("true")})
	if err != nil {
		t.Fatalf("search text: %v", err)
	}
	if len(fromBool) != 1 || len(fromText) != 1 || fromBool[0] != fromText[0] {
		t.Fatalf("bool=%+v text=%+v", fromBool, fromText)
	}
}

func TestUpdateAppliesOnlyPresentFields(t *testing.T) {
	svc, store := newService(t, seed())
	ctx := context.Background()

	updated, found, err := svc.Update(ctx, "appTwo", application.Patch{AppOwner: strPtr("Etihad")})
	if err != nil || !found {
		t.Fatalf("update: found=%v err=%v", found, err)
	}
	want := application.Application{AppName: "appTwo", AppData: application.Data{AppPath: "/appTwo", AppOwner: "Etihad", IsValid: false}}
	if updated != want {
		t.Fatalf("updated = %+v, want %+v", updated, want)
	}

	stored, _, _ := svc.FindByName(ctx, "appTwo")
	if stored != want {
		t.Fatalf("stored = %+v, want %+v", stored, want)
	}
	if store.Writes() != 1 {
		t.Fatalf("writes = %d, want 1", store.Writes())
	}
}

func TestUpdateEmptyPatchRewritesUnchangedRecord(t *testing.T) {
	svc, store := newService(t, seed())

	updated, found, err := svc.Update(context.Background(), "appOne", application.Patch{})
	if err != nil || !found {
		t.Fatalf("update: found=%v err=%v", found, err)
	}
	if updated != seed()[0] {
		t.Fatalf("updated = %+v, want %+v", updated, seed()[0])
	}
	if store.Writes() != 1 {
		t.Fatalf("writes = %d, want 1", store.Writes())
	}
}

func TestNotFoundNeverWrites(t *testing.T) {
	svc, store := newService(t, seed())
	ctx := context.Background()
	before := rawDocument(t, store)

	if _, found, err := svc.Update(ctx, "missing", application.Patch{IsValid: boolPtr(true)}); err != nil || found {
		t.Fatalf("update missing: found=%v err=%v", found, err)
	}
	if _, found, err := svc.Delete(ctx, "missing"); err != nil || found {
		t.Fatalf("delete missing: found=%v err=%v", found, err)
	}

	if store.Writes() != 0 {
		t.Fatalf("writes = %d, want 0", store.Writes())
	}
	if !bytes.Equal(before, rawDocument(t, store)) {
		t.Fatalf("document changed after not-found operations")
	}
}

func TestDeleteRemovesFirstDuplicateOnly(t *testing.T) {
	apps := seed()
	dup := application.Application{AppName: "appOne", AppData: application.Data{AppPath: "/dup", AppOwner: "Other", IsValid: false}}
	apps = append(apps, dup)
	svc, _ := newService(t, apps)
	ctx := context.Background()

	removed, found, err := svc.Delete(ctx, "appOne")
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	if removed != seed()[0] {
		t.Fatalf("removed = %+v, want first record", removed)
	}

	remaining, found, err := svc.FindByName(ctx, "appOne")
	if err != nil || !found || remaining != dup {
		t.Fatalf("remaining = %+v found=%v err=%v", remaining, found, err)
	}

	all, _ := svc.LoadAll(ctx)
	if len(all) != 3 || all[0].AppName != "appTwo" {
		t.Fatalf("collection after delete = %+v", all)
	}
}

func TestWriteFailureLeavesCollectionUnchanged(t *testing.T) {
	svc, store := newService(t, seed())
	ctx := context.Background()
	before := rawDocument(t, store)
	store.FailWrites(errors.New("disk full"))

	_, found, err := svc.Update(ctx, "appOne", application.Patch{AppOwner: strPtr("x")})
	var werr *StorageWriteError
	if !errors.As(err, &werr) || werr.Op != OpUpdate {
		t.Fatalf("update err = %v, want StorageWriteError", err)
	}
	if found {
		t.Fatalf("found = true on failed write")
	}

	if _, _, err := svc.Delete(ctx, "appOne"); !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("delete err = %v, want ErrStorageWrite", err)
	}

	if !bytes.Equal(before, rawDocument(t, store)) {
		t.Fatalf("document changed after failed writes")
	}
	store.FailWrites(nil)
	app, _, err := svc.FindByName(ctx, "appOne")
	if err != nil || app != seed()[0] {
		t.Fatalf("appOne = %+v err=%v", app, err)
	}
}

func TestReadFailures(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]*memory.Store{
		"missing":   memory.New(),
		"malformed": memory.NewWithDocument([]byte(`[{"appName":`)),
		"not array": memory.NewWithDocument([]byte(`{"appName":"a"}`)),
	} {
		t.Run(name, func(t *testing.T) {
			svc := New(store, logger.NewNop())

			if _, err := svc.LoadAll(ctx); !errors.Is(err, ErrStorageRead) {
				t.Fatalf("load all err = %v", err)
			}
			if _, _, err := svc.FindByName(ctx, "a"); !errors.Is(err, ErrStorageRead) {
				t.Fatalf("find err = %v", err)
			}
			if _, err := svc.Search(ctx, application.Criteria{}); !errors.Is(err, ErrStorageRead) {
				t.Fatalf("search err = %v", err)
			}
			if _, _, err := svc.Update(ctx, "a", application.Patch{}); !errors.Is(err, ErrStorageRead) {
				t.Fatalf("update err = %v", err)
			}
			_, _, err := svc.Delete(ctx, "a")
			var rerr *StorageReadError
			if !errors.As(err, &rerr) || rerr.Op != OpDelete {
				t.Fatalf("delete err = %v", err)
			}
			if store.Writes() != 0 {
				t.Fatalf("writes = %d after read failure", store.Writes())
			}
		})
	}
}

func TestMissingDocumentUnwrapsToStorageSentinel(t *testing.T) {
	svc := New(memory.New(), logger.NewNop())
	_, err := svc.LoadAll(context.Background())
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound in chain", err)
	}
}

func TestValidateCollection(t *testing.T) {
	ctx := context.Background()

	svc, _ := newService(t, seed())
	if err := svc.ValidateCollection(ctx); err != nil {
		t.Fatalf("validate clean collection: %v", err)
	}

	bad := New(memory.NewWithDocument([]byte(`[
		{"appName":"a","appData":{"appPath":"/a","appOwner":"o","isValid":true}},
		{"appName":"a","appData":{"appPath":"/b","appOwner":"o","isValid":true}},
		{"appName":"b","appData":{"appPath":"/c","appOwner":"o","isValid":"yes"}}
	]`)), logger.NewNop())
	findings := application.Findings(bad.ValidateCollection(ctx))
	if len(findings) != 2 {
		t.Fatalf("findings = %v, want 2", findings)
	}

	null := New(memory.NewWithDocument([]byte("null")), logger.NewNop())
	if _, err := null.LoadAll(ctx); !errors.Is(err, ErrStorageRead) {
		t.Fatalf("load null document err = %v", err)
	}
	if findings := application.Findings(null.ValidateCollection(ctx)); len(findings) != 1 {
		t.Fatalf("null document findings = %v, want 1", findings)
	}

	if err := New(memory.New(), logger.NewNop()).ValidateCollection(ctx); !errors.Is(err, ErrStorageRead) {
		t.Fatalf("validate missing document err = %v", err)
	}
}
