package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) documents(t *testing.T) (DocumentService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	r := f.repos
	return NewDocumentService(r.Tx, r.Documents, r.Students, r.Notifications, store, f.events, 1<<20, f.logger), store
}

func uploadReq(studentID, name, content string) (*models.UploadDocumentRequest, io.Reader) {
	return &models.UploadDocumentRequest{
		StudentID:    studentID,
		DocumentType: "passport",
		FileName:     name,
		Size:         int64(len(content)),
	}, strings.NewReader(content)
}

func TestDocumentUpload_Policy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.student(t, "Aisha")
	other := f.student(t, "Bala")
	admin := Actor{UserID: "admin", Role: models.RoleAdmin}
	svc, _ := f.documents(t)

	req, body := uploadReq("", "passport.pdf", "%PDF-1.4")
	_, err := svc.Upload(ctx, admin, req, body)
	asError[*ValidationError](t, err)

	req, body = uploadReq(other.ID, "passport.pdf", "%PDF-1.4")
	_, err = svc.Upload(ctx, Actor{UserID: owner.UserID, Role: models.RoleStudent}, req, body)
	asError[*ForbiddenError](t, err)

	req, body = uploadReq("", "run.exe", "MZ")
	_, err = svc.Upload(ctx, Actor{UserID: owner.UserID, Role: models.RoleStudent}, req, body)
	asError[*ValidationError](t, err)

	req, body = uploadReq("", "passport.pdf", "%PDF-1.4")
	req.DocumentType = "selfie"
	_, err = svc.Upload(ctx, Actor{UserID: owner.UserID, Role: models.RoleStudent}, req, body)
	asError[*ValidationError](t, err)

	req, body = uploadReq("", "big.pdf", "x")
	req.Size = 2 << 20
	_, err = svc.Upload(ctx, Actor{UserID: owner.UserID, Role: models.RoleStudent}, req, body)
	asError[*ValidationError](t, err)

	req, body = uploadReq(owner.ID, "passport.pdf", "%PDF-1.4")
	_, err = svc.Upload(ctx, Actor{UserID: "finance", Role: models.RoleFinance}, req, body)
	asError[*ForbiddenError](t, err)
}

func TestDocumentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.student(t, "Aisha")
	other := f.student(t, "Bala")
	ownerActor := Actor{UserID: owner.UserID, Role: models.RoleStudent}
	otherActor := Actor{UserID: other.UserID, Role: models.RoleStudent}
	admin := Actor{UserID: "admin", Role: models.RoleAdmin}
	svc, _ := f.documents(t)

	req, body := uploadReq("", "transcript.pdf", "hello")
	req.DocumentType = "Transcript"
	doc, err := svc.Upload(ctx, ownerActor, req, body)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, doc.StudentID)
	assert.Equal(t, "transcript", doc.DocumentType)
	assert.Equal(t, "transcript.pdf", doc.DocumentName)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", doc.Checksum)
	assert.True(t, strings.HasPrefix(doc.FileURL, "/uploads/documents/"))

	_, err = svc.Get(ctx, otherActor, doc.ID)
	asError[*ForbiddenError](t, err)

	_, rc, size, err := svc.Open(ctx, ownerActor, doc.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), size)

	verified, err := svc.Verify(ctx, doc.ID, "admin")
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	notes := f.notifications(t, owner.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Your document 'transcript.pdf' has been verified.", notes[0].Message)

	err = svc.Delete(ctx, ownerActor, doc.ID)
	asError[*ForbiddenError](t, err)

	_, err = svc.Unverify(ctx, doc.ID)
	require.NoError(t, err)

	assert.IsType(t, &ForbiddenError{}, svc.Delete(ctx, otherActor, doc.ID))
	require.NoError(t, svc.Delete(ctx, ownerActor, doc.ID))

	_, _, _, err = svc.Open(ctx, admin, doc.ID)
	assert.True(t, IsNotFound(err))
}

func TestDocumentList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.student(t, "Aisha")
	b := f.student(t, "Bala")
	admin := Actor{UserID: "admin", Role: models.RoleAdmin}
	svc, _ := f.documents(t)

	for _, sid := range []string{a.ID, a.ID, b.ID} {
		req, body := uploadReq(sid, "doc.png", "png")
		_, err := svc.Upload(ctx, admin, req, body)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, models.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.ListMine(ctx, a.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = svc.ListByStudent(ctx, Actor{UserID: a.UserID, Role: models.RoleStudent}, b.ID)
	asError[*ForbiddenError](t, err)

	verified := false
	unverified, err := svc.List(ctx, models.DocumentFilter{StudentID: b.ID, Verified: &verified})
	require.NoError(t, err)
	assert.Len(t, unverified, 1)
}
