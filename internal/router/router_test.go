package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtk/giapha/internal/auth"
	"github.com/longtk/giapha/internal/handler"
	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/repository"
	"github.com/longtk/giapha/internal/service"
)

type userDirectory struct{ users map[uint64]model.User }

func (d *userDirectory) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := d.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type memberDirectory struct{ members map[uint64]model.Member }

func (d *memberDirectory) Create(_ context.Context, m *model.Member) (uint64, error) {
	id := uint64(len(d.members) + 1)
	cp := *m
	cp.ID = id
	d.members[id] = cp
	return id, nil
}

func (d *memberDirectory) GetByID(_ context.Context, id uint64) (model.Member, error) {
	m, ok := d.members[id]
	if !ok {
		return model.Member{}, repository.ErrNotFound
	}
	return m, nil
}

func (d *memberDirectory) Update(_ context.Context, m *model.Member) error {
	d.members[m.ID] = *m
	return nil
}

func (d *memberDirectory) Delete(_ context.Context, id uint64) error {
	if _, ok := d.members[id]; !ok {
		return repository.ErrNotFound
	}
	delete(d.members, id)
	return nil
}

func (d *memberDirectory) Search(_ context.Context, _ repository.MemberSearchQuery) ([]model.Member, int64, error) {
	return nil, 0, nil
}

// newTestRouter registers the real routes with in-memory stores.  Only the
// member routes are exercised; the other handlers stay unwired.
func newTestRouter(t *testing.T) (*echo.Echo, *auth.Codec, *memberDirectory) {
	t.Helper()
	codec := auth.NewCodec(
		auth.Secrets{Access: "a-secret", Refresh: "r-secret", Mail: "m-secret"},
		auth.TTLs{Access: 15 * time.Minute, Refresh: 24 * time.Hour, Mail: 30 * time.Minute},
	)
	users := &userDirectory{users: map[uint64]model.User{
		2: {ID: 2, Email: "owner@x.com", Role: model.RoleOwner, TreeID: 10, IsActive: true},
		3: {ID: 3, Email: "member@x.com", Role: model.RoleMember, TreeID: 10, IsActive: true},
	}}
	members := &memberDirectory{members: map[uint64]model.Member{
		5: {ID: 5, PublicID: "pub-5", TreeID: 10, UserID: 2, FullName: "Nguyễn Văn B", Gender: "male"},
	}}

	e := echo.New()
	Register(e, Handlers{
		Auth:    handler.NewAuthHandler(nil),
		Trees:   handler.NewTreeHandler(nil),
		Members: handler.NewMemberHandler(service.NewMemberService(members)),
		Admin:   handler.NewAdminHandler(nil),
	}, codec, users, nil)
	return e, codec, members
}

func TestMemberDeleteRouteUsesRecordRule(t *testing.T) {
	e, codec, members := newTestRouter(t)

	// A Member's delete attempt passes the role gate and is denied by the
	// record-level rule, so the client sees CANNOT_DELETE_MEMBER.
	memberTok, _, err := codec.Sign(3, model.RoleMember, auth.KindAccess)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/v1/members/5", nil)
	req.Header.Set("Authorization", "Bearer "+memberTok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeDeleteMember)
	_, ok := members.members[5]
	assert.True(t, ok, "record must survive the denied delete")

	// The tree's Owner may delete.
	ownerTok, _, err := codec.Sign(2, model.RoleOwner, auth.KindAccess)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodDelete, "/v1/members/5", nil)
	req.Header.Set("Authorization", "Bearer "+ownerTok)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok = members.members[5]
	assert.False(t, ok)
}
