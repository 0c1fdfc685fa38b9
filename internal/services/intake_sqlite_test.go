package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techstock/internal/domain"
	"techstock/internal/mapper"
	"techstock/internal/repos"
	"techstock/internal/services"
)

// The serial check passes (no checker), so the store's unique index is the
// last line of defence and its error must reach the operator translated.
func TestIntake_SQLiteDuplicateIsTranslated(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	repo := repos.NewEquipmentRepo(db)

	seed := mapper.ToDestination(mapper.ForUnit(domain.Phone, phoneCommon(), domain.UnitEntry{Serial: "bbbb2"}), domain.Phone, domain.PrimaryStock)
	_, err = repo.Insert(context.Background(), domain.TablePhones, seed.Stamp("seed"))
	require.NoError(t, err)

	p := &services.Persister{Gateway: repo, Workers: 2}
	w := services.NewWizard(services.BatchContext{Operator: "op1"}, p, nil)
	require.NoError(t, w.SelectVariant(domain.Phone))
	require.NoError(t, w.UpdateCommon(phoneCommon()))
	require.NoError(t, w.SubmitCommon())
	enterSerials(t, w, "AAAA1", "BBBB2")
	require.NoError(t, w.SubmitUnits(context.Background()))

	res, err := w.Confirm(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Successes, 1)
	assert.Equal(t, "AAAA1", res.Successes[0].Serial)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, services.MsgSerialExists, res.Failures[0].ErrorMessage)

	exists, err := repo.SerialExists(context.Background(), "aaaa1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIntake_SQLiteCheckerCatchesExisting(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	repo := repos.NewEquipmentRepo(db)

	seed := mapper.ToDestination(mapper.ForUnit(domain.Other, domain.Fields{
		"product_name": "Monitor 24", "category": "monitores", "purchase_price_usd": 90, "sale_price_usd": 140,
	}, domain.UnitEntry{Serial: "MON-0001"}), domain.Other, domain.PrimaryStock)
	_, err = repo.Insert(context.Background(), domain.TableOther, seed.Stamp("seed"))
	require.NoError(t, err)

	w := services.NewWizard(services.BatchContext{Operator: "op1", Target: domain.QaStaging}, &services.Persister{Gateway: repo}, repo)
	require.NoError(t, w.SelectVariant(domain.Phone))
	require.NoError(t, w.UpdateCommon(phoneCommon()))
	require.NoError(t, w.SubmitCommon())
	ids := enterSerials(t, w, "mon-0001", "NEW-0002")

	var ue *services.UnitsError
	require.ErrorAs(t, w.SubmitUnits(context.Background()), &ue)
	assert.Equal(t, services.MsgSerialExists, ue.Invalid[ids[0]])

	require.NoError(t, w.EditUnit(ids[0], "", nil))
	require.NoError(t, w.SubmitUnits(context.Background()))
	res, err := w.Confirm(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Successes)

	rows, err := repo.Recent(context.Background(), domain.TableQAIntake, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "NEW-0002", rows[0].Serial)
	assert.Equal(t, "pending", rows[0].Status)
	assert.Equal(t, "op1", rows[0].CreatedBy)
}
