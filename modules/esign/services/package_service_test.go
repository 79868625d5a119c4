package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signpackage"
	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/domain/entities/jurisdiction"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/eventbus"
	"github.com/showconnect/esign/pkg/serrors"
)

type packageFixture struct {
	svc           *PackageService
	lifecycle     *LifecycleService
	pkgRepo       *fakePackageRepo
	reqRepo       *fakeRequestRepo
	jurisdictions *fakeJurisdictionRepo
	notifier      *fakeNotifier
	bus           eventbus.EventBus
	ctx           context.Context
}

func newPackageFixture(t *testing.T) *packageFixture {
	t.Helper()
	pkgRepo := newFakePackageRepo()
	reqRepo := newFakeRequestRepo()
	templates := newFakeTemplateRepo()
	jurisdictions := newFakeJurisdictionRepo()
	notifier := &fakeNotifier{}
	bus := eventbus.NewEventPublisher(logrus.New())

	lifecycle := NewLifecycleService(
		reqRepo, templates, jurisdictions, notifier, bus,
		"http://localhost:3000", 7*24*time.Hour,
	)
	svc := NewPackageService(
		pkgRepo, reqRepo, templates, jurisdictions, notifier, bus,
		nil, "http://localhost:3000", 7*24*time.Hour,
	)
	return &packageFixture{
		svc:           svc,
		lifecycle:     lifecycle,
		pkgRepo:       pkgRepo,
		reqRepo:       reqRepo,
		jurisdictions: jurisdictions,
		notifier:      notifier,
		bus:           bus,
		ctx:           composables.WithTenantID(context.Background(), "default"),
	}
}

func (f *packageFixture) signRequest(t *testing.T, requestID uuid.UUID) {
	t.Helper()
	tok, err := f.reqRepo.GetTokenByRequestID(f.ctx, requestID)
	require.NoError(t, err)
	require.NoError(t, f.reqRepo.MarkVerified(f.ctx, tok.ID))
	require.NoError(t, f.reqRepo.UpdateStatus(f.ctx, requestID, signrequest.StatusVerified))
	_, err = f.lifecycle.Submit(f.ctx, tok.Value, SubmitSignatureParams{
		Kind:      signrequest.KindTyped,
		TypedName: "signer",
	})
	require.NoError(t, err)
}

func waiverPackageParams() CreatePackageParams {
	return CreatePackageParams{
		DocumentName:    "Event Waiver",
		DocumentContent: "<p>{{eventName}}: {{signerName}} signs as {{signerRolesList}}.</p>",
		MergeVariables:  map[string]string{"eventName": "Spring Classic"},
		EventDate:       "2025-06-01",
		Assignments: []signpackage.Assignment{
			{Role: "rider", Name: "Alex Lee", Email: "a@x.com"},
			{Role: "guardian", Name: "Alex Lee", Email: "a@x.com", DateOfBirth: "1980-01-01", IsPackageAdmin: true},
		},
	}
}

func TestPackage_CreateConsolidatesSharedIdentity(t *testing.T) {
	f := newPackageFixture(t)

	status, err := f.svc.Create(f.ctx, waiverPackageParams())
	require.NoError(t, err)

	pkg := status.Package
	assert.True(t, strings.HasPrefix(pkg.Code, "PKG-"))
	assert.Equal(t, 1, pkg.TotalSigners)
	assert.Equal(t, signpackage.StatusPending, pkg.Status)
	require.Len(t, status.Roles, 2)

	// both roles point at the one request and share a consolidated group
	require.NotNil(t, status.Roles[0].RequestID)
	require.NotNil(t, status.Roles[1].RequestID)
	assert.Equal(t, *status.Roles[0].RequestID, *status.Roles[1].RequestID)
	assert.Equal(t, status.Roles[0].ConsolidatedGroup, status.Roles[1].ConsolidatedGroup)

	req, err := f.reqRepo.GetByID(f.ctx, *status.Roles[0].RequestID)
	require.NoError(t, err)
	assert.Equal(t, "Alex Lee", req.SignerName)
	assert.Equal(t, signrequest.StatusSent, req.Status)
	assert.Contains(t, req.DocumentContent, "Spring Classic")
	assert.Contains(t, req.DocumentContent, "Alex Lee signs as rider, guardian")
	assert.Len(t, f.notifier.callsOf("link"), 1)
}

func TestPackage_CreateSeparateSignersGetSeparateRequests(t *testing.T) {
	f := newPackageFixture(t)
	params := waiverPackageParams()
	params.Assignments = []signpackage.Assignment{
		{Role: "rider", Name: "Alex Lee", Email: "a@x.com"},
		{Role: "trainer", Name: "Pat Kim", Email: "p@x.com", DateOfBirth: "1990-05-10"},
	}

	status, err := f.svc.Create(f.ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Package.TotalSigners)
	assert.NotEqual(t, *status.Roles[0].RequestID, *status.Roles[1].RequestID)

	// signer variables never leak across groups
	for _, role := range status.Roles {
		req, err := f.reqRepo.GetByID(f.ctx, *role.RequestID)
		require.NoError(t, err)
		assert.Contains(t, req.DocumentContent, role.SignerName)
		other := "Pat Kim"
		if role.SignerName == other {
			other = "Alex Lee"
		}
		assert.NotContains(t, req.DocumentContent, other)
	}
}

func TestPackage_CreateAgeViolationsBatched(t *testing.T) {
	f := newPackageFixture(t)
	params := waiverPackageParams()
	params.Assignments = []signpackage.Assignment{
		{Role: "trainer", Name: "Kid One", Email: "k1@x.com", DateOfBirth: "2015-01-01"},
		{Role: "coach", Name: "Kid Two", Email: "k2@x.com"},
	}

	_, err := f.svc.Create(f.ctx, params)
	var vErr *serrors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Violations, 2)
}

func TestPackage_CreateRejectsTwoDistinctAdmins(t *testing.T) {
	f := newPackageFixture(t)
	params := waiverPackageParams()
	params.Assignments = []signpackage.Assignment{
		{Role: "rider", Name: "Alex Lee", Email: "a@x.com", IsPackageAdmin: true},
		{Role: "owner", Name: "Pat Kim", Email: "p@x.com", IsPackageAdmin: true},
	}
	_, err := f.svc.Create(f.ctx, params)
	var vErr *serrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestPackage_CreateAutoPromotesFirstAdmin(t *testing.T) {
	f := newPackageFixture(t)
	params := waiverPackageParams()
	params.Assignments = []signpackage.Assignment{
		{Role: "rider", Name: "Alex Lee", Email: "a@x.com"},
		{Role: "owner", Name: "Pat Kim", Email: "p@x.com"},
	}
	status, err := f.svc.Create(f.ctx, params)
	require.NoError(t, err)

	var admins []string
	for _, role := range status.Roles {
		if role.IsPackageAdmin {
			admins = append(admins, role.SignerName)
		}
	}
	assert.Equal(t, []string{"Alex Lee"}, admins)
}

func TestPackage_JurisdictionAddendumInjected(t *testing.T) {
	f := newPackageFixture(t)
	_, err := f.jurisdictions.Upsert(f.ctx, &jurisdiction.Addendum{
		Code:         "CA",
		Name:         "California",
		AddendumHTML: "<p>CA notice.</p>",
		IsActive:     true,
	})
	require.NoError(t, err)

	params := waiverPackageParams()
	params.Jurisdiction = "CA"
	params.DocumentContent = "<p>Body.</p>{{jurisdictionAddendum}}"
	status, err := f.svc.Create(f.ctx, params)
	require.NoError(t, err)
	assert.Contains(t, status.Package.DocumentContent, "CA notice.")
	assert.NotContains(t, status.Package.DocumentContent, "jurisdictionAddendum")
}

func TestPackage_CompletionCountsGroupsNotRoles(t *testing.T) {
	f := newPackageFixture(t)
	params := waiverPackageParams()
	params.Assignments = []signpackage.Assignment{
		{Role: "rider", Name: "Alex Lee", Email: "a@x.com"},
		{Role: "guardian", Name: "Alex Lee", Email: "a@x.com", DateOfBirth: "1980-01-01"},
		{Role: "trainer", Name: "Pat Kim", Email: "p@x.com", DateOfBirth: "1990-05-10"},
	}
	status, err := f.svc.Create(f.ctx, params)
	require.NoError(t, err)
	require.Equal(t, 2, status.Package.TotalSigners)

	var alexRequest, patRequest uuid.UUID
	for _, role := range status.Roles {
		if role.SignerName == "Alex Lee" {
			alexRequest = *role.RequestID
		} else {
			patRequest = *role.RequestID
		}
	}

	// Alex signs: two roles flip but only one group counts
	f.signRequest(t, alexRequest)
	pkg, err := f.pkgRepo.GetByID(f.ctx, status.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pkg.CompletedSigners)
	assert.Equal(t, signpackage.StatusPartial, pkg.Status)
	assert.Nil(t, pkg.CompletedAt)

	f.signRequest(t, patRequest)
	pkg, err = f.pkgRepo.GetByID(f.ctx, status.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pkg.CompletedSigners)
	assert.Equal(t, signpackage.StatusComplete, pkg.Status)
	require.NotNil(t, pkg.CompletedAt)
}

func TestPackage_ReplaceSigner(t *testing.T) {
	f := newPackageFixture(t)
	status, err := f.svc.Create(f.ctx, waiverPackageParams())
	require.NoError(t, err)

	oldRequestID := *status.Roles[0].RequestID
	oldTok, err := f.reqRepo.GetTokenByRequestID(f.ctx, oldRequestID)
	require.NoError(t, err)

	newReq, signURL, err := f.svc.ReplaceSigner(f.ctx, status.Package.ID, ReplaceSignerParams{
		RoleID: status.Roles[0].ID,
		Name:   "Sam Cho",
		Email:  "sam@x.com",
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldRequestID, newReq.ID)
	assert.True(t, strings.HasPrefix(signURL, "http://localhost:3000/sign/"))

	newTok, err := f.reqRepo.GetTokenByRequestID(f.ctx, newReq.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldTok.Value, newTok.Value)

	// the old request is cancelled, never edited
	old, err := f.reqRepo.GetByID(f.ctx, oldRequestID)
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusCancelled, old.Status)
	assert.Equal(t, "Alex Lee", old.SignerName)

	// every sibling role repointed and reset to sent
	roles, err := f.pkgRepo.Roles(f.ctx, status.Package.ID)
	require.NoError(t, err)
	for _, role := range roles {
		require.NotNil(t, role.RequestID)
		assert.Equal(t, newReq.ID, *role.RequestID)
		assert.Equal(t, "Sam Cho", role.SignerName)
		assert.Equal(t, signpackage.RoleStatusSent, role.Status)
	}

	assert.Contains(t, newReq.DocumentContent, "Sam Cho")
	assert.NotContains(t, newReq.DocumentContent, "Alex Lee")
}

func TestPackage_ReplaceSignedRoleRejected(t *testing.T) {
	f := newPackageFixture(t)
	params := waiverPackageParams()
	params.Assignments = []signpackage.Assignment{
		{Role: "rider", Name: "Alex Lee", Email: "a@x.com"},
		{Role: "trainer", Name: "Pat Kim", Email: "p@x.com", DateOfBirth: "1990-05-10"},
	}
	status, err := f.svc.Create(f.ctx, params)
	require.NoError(t, err)

	var signedRole *signpackage.Role
	for _, role := range status.Roles {
		if role.SignerName == "Alex Lee" {
			signedRole = role
		}
	}
	require.NotNil(t, signedRole)
	f.signRequest(t, *signedRole.RequestID)

	_, _, err = f.svc.ReplaceSigner(f.ctx, status.Package.ID, ReplaceSignerParams{
		RoleID: signedRole.ID,
		Name:   "Sam Cho",
		Email:  "sam@x.com",
	})
	var conflict *serrors.StateConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestPackage_DeclineNotifiesAdmin(t *testing.T) {
	f := newPackageFixture(t)
	params := waiverPackageParams()
	params.Assignments = []signpackage.Assignment{
		{Role: "rider", Name: "Alex Lee", Email: "a@x.com"},
		{Role: "trainer", Name: "Pat Kim", Email: "p@x.com", DateOfBirth: "1990-05-10", IsPackageAdmin: true},
	}
	status, err := f.svc.Create(f.ctx, params)
	require.NoError(t, err)

	var riderRequest uuid.UUID
	for _, role := range status.Roles {
		if role.RoleName == "rider" {
			riderRequest = *role.RequestID
		}
	}
	tok, err := f.reqRepo.GetTokenByRequestID(f.ctx, riderRequest)
	require.NoError(t, err)

	_, err = f.lifecycle.Decline(f.ctx, tok.Value, "wrong person")
	require.NoError(t, err)

	notices := f.notifier.callsOf("decline-notice")
	require.Len(t, notices, 1)
	assert.Equal(t, "p@x.com", notices[0].to)
	assert.Contains(t, notices[0].body, "/replace")
}

func TestPackage_GetBatch(t *testing.T) {
	f := newPackageFixture(t)
	first, err := f.svc.Create(f.ctx, waiverPackageParams())
	require.NoError(t, err)
	second, err := f.svc.Create(f.ctx, waiverPackageParams())
	require.NoError(t, err)

	result, err := f.svc.GetBatch(f.ctx, []string{
		first.Package.Code, second.Package.Code,
		first.Package.Code, // duplicate
		"PKG-MISSING1",
	})
	require.NoError(t, err)
	assert.Len(t, result.Found, 2)
	assert.Equal(t, []string{"PKG-MISSING1"}, result.NotFound)

	_, err = f.svc.GetBatch(f.ctx, nil)
	var vErr *serrors.ValidationError
	assert.ErrorAs(t, err, &vErr)

	tooMany := make([]string, 51)
	for i := range tooMany {
		tooMany[i] = signrequest.NewReferenceCode("PKG")
	}
	_, err = f.svc.GetBatch(f.ctx, tooMany)
	assert.ErrorAs(t, err, &vErr)
}
