package app

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"frameboard/api/internal/blob"
)

func newTestServer(t *testing.T) (*HTTPServer, *blob.MemoryStore) {
	t.Helper()
	svc, _, blobs, _ := newTestService(t)
	return NewHTTPServer(svc, "*"), blobs
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(file); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func postThread(t *testing.T, server *HTTPServer, fields map[string]string, file []byte, filename string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, "file", filename, file)
	req := httptest.NewRequest(http.MethodPost, "/api/thread", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func TestCreateThreadEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rr := postThread(t, server, map[string]string{"room": "b", "text": "hello"}, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	payload := decodeJSON(t, rr)
	if payload["status"] != "ok" {
		t.Errorf("expected status ok, got %v", payload["status"])
	}
	thread, ok := payload["thread"].(map[string]any)
	if !ok {
		t.Fatalf("expected thread object, got %v", payload["thread"])
	}
	if thread["room"] != "b" || thread["text"] != "hello" || thread["op"] != true {
		t.Errorf("unexpected thread: %v", thread)
	}
	if id, _ := thread["id"].(string); id == "" {
		t.Error("expected assigned thread id")
	}
	if thread["image_id"] != nil || thread["thumbnail_id"] != nil {
		t.Errorf("expected null image refs, got %v %v", thread["image_id"], thread["thumbnail_id"])
	}
	if replies, ok := thread["replies"].([]any); !ok || len(replies) != 0 {
		t.Errorf("expected empty replies array, got %v", thread["replies"])
	}
}

func TestCreateThreadEndpointRequiresRoom(t *testing.T) {
	server, _ := newTestServer(t)

	rr := postThread(t, server, map[string]string{"text": "no room"}, nil, "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rr.Code)
	}
}

func TestCreateThreadEndpointAcceptsURLEncodedForm(t *testing.T) {
	server, _ := newTestServer(t)

	form := url.Values{"room": {"b"}, "text": {"plain form"}}
	req := httptest.NewRequest(http.MethodPost, "/api/thread", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateThreadEndpointInvalidImage(t *testing.T) {
	server, blobs := newTestServer(t)

	rr := postThread(t, server, map[string]string{"room": "b"}, []byte("garbage"), "junk.bin")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if blobs.Len() != 0 {
		t.Errorf("invalid upload left %d blobs", blobs.Len())
	}
}

func TestImageUploadAndRetrieval(t *testing.T) {
	server, _ := newTestServer(t)
	original := validJPEG(t, 600, 400)

	rr := postThread(t, server, map[string]string{"room": "b"}, original, "pic.jpg")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	thread := decodeJSON(t, rr)["thread"].(map[string]any)

	imageID, _ := thread["image_id"].(string)
	thumbID, _ := thread["thumbnail_id"].(string)
	if imageID == "" || thumbID == "" {
		t.Fatalf("expected blob ids, got %v %v", thread["image_id"], thread["thumbnail_id"])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/image/"+imageID, nil)
	imgRR := httptest.NewRecorder()
	server.Handler().ServeHTTP(imgRR, req)
	if imgRR.Code != http.StatusOK {
		t.Fatalf("expected 200 for image, got %d", imgRR.Code)
	}
	if ct := imgRR.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}
	if !bytes.Equal(imgRR.Body.Bytes(), original) {
		t.Error("served image does not match upload")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/thumb/"+thumbID, nil)
	thumbRR := httptest.NewRecorder()
	server.Handler().ServeHTTP(thumbRR, req)
	if thumbRR.Code != http.StatusOK {
		t.Fatalf("expected 200 for thumb, got %d", thumbRR.Code)
	}
	if ct := thumbRR.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg thumb, got %s", ct)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(thumbRR.Body.Bytes()))
	if err != nil {
		t.Fatalf("served thumbnail does not decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() > 250 || b.Dy() > 250 {
		t.Errorf("thumbnail exceeds bounds: %dx%d", b.Dx(), b.Dy())
	}
}

func TestImageEndpointNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	for _, path := range []string{"/api/image/no-such-id", "/api/thumb/no-such-id"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rr.Code)
		}
	}
}

func TestListThreadsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	postThread(t, server, map[string]string{"room": "b", "text": "hello"}, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/threads/b", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	threads, ok := decodeJSON(t, rr)["threads"].([]any)
	if !ok || len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %v", threads)
	}
	if thread := threads[0].(map[string]any); thread["text"] != "hello" {
		t.Errorf("unexpected thread: %v", thread)
	}
}

func TestListThreadsEndpointUnknownRoom(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/threads/never-seen", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	threads, ok := decodeJSON(t, rr)["threads"].([]any)
	if !ok || len(threads) != 0 {
		t.Errorf("expected empty thread list, got %v", threads)
	}
}

func TestGetThreadEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rr := postThread(t, server, map[string]string{"room": "b", "text": "hello"}, nil, "")
	thread := decodeJSON(t, rr)["thread"].(map[string]any)
	id := thread["id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/thread/b/"+id, nil)
	getRR := httptest.NewRecorder()
	server.Handler().ServeHTTP(getRR, req)
	if getRR.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRR.Code)
	}
	if doc := decodeJSON(t, getRR); doc["id"] != id || doc["text"] != "hello" {
		t.Errorf("unexpected document: %v", doc)
	}
}

func TestGetThreadEndpointNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/thread/b/ffffffffffffffffffffffff", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestReplyEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rr := postThread(t, server, map[string]string{"room": "b", "text": "op"}, nil, "")
	thread := decodeJSON(t, rr)["thread"].(map[string]any)
	id := thread["id"].(string)

	body, contentType := multipartBody(t, map[string]string{"room": "b", "thread_id": id, "text": "reply"}, "file", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/reply", body)
	req.Header.Set("Content-Type", contentType)
	replyRR := httptest.NewRecorder()
	server.Handler().ServeHTTP(replyRR, req)

	if replyRR.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", replyRR.Code, replyRR.Body.String())
	}
	payload := decodeJSON(t, replyRR)
	reply, ok := payload["reply"].(map[string]any)
	if !ok {
		t.Fatalf("expected reply object, got %v", payload["reply"])
	}
	if reply["op"] != false || reply["thread_id"] != id {
		t.Errorf("unexpected reply: %v", reply)
	}
}

func TestReplyEndpointMissingThread(t *testing.T) {
	server, _ := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{"room": "b", "thread_id": "ffffffffffffffffffffffff"}, "file", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/reply", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRoomsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	postThread(t, server, map[string]string{"room": "b"}, nil, "")
	postThread(t, server, map[string]string{"room": "g"}, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rooms, ok := decodeJSON(t, rr)["rooms"].([]any)
	if !ok || len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %v", rooms)
	}
	if room := rooms[0].(map[string]any); room["name"] != "b" {
		t.Errorf("unexpected room: %v", room)
	}
}

func TestAdminDeleteEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rr := postThread(t, server, map[string]string{"room": "b", "text": "doomed"}, nil, "")
	thread := decodeJSON(t, rr)["thread"].(map[string]any)
	id := thread["id"].(string)

	// Wrong key is rejected and the thread survives.
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/thread?room=b&thread_id="+id+"&key=wrong", nil)
	wrongRR := httptest.NewRecorder()
	server.Handler().ServeHTTP(wrongRR, req)
	if wrongRR.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", wrongRR.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/thread/b/"+id, nil)
	getRR := httptest.NewRecorder()
	server.Handler().ServeHTTP(getRR, getReq)
	if getRR.Code != http.StatusOK {
		t.Fatalf("thread disappeared after unauthorized delete: %d", getRR.Code)
	}

	// Correct key deletes.
	req = httptest.NewRequest(http.MethodDelete, "/api/admin/thread?room=b&thread_id="+id+"&key="+testAdminKey, nil)
	okRR := httptest.NewRecorder()
	server.Handler().ServeHTTP(okRR, req)
	if okRR.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", okRR.Code, okRR.Body.String())
	}
	if payload := decodeJSON(t, okRR); payload["status"] != "deleted" {
		t.Errorf("expected status deleted, got %v", payload["status"])
	}

	getRR = httptest.NewRecorder()
	server.Handler().ServeHTTP(getRR, getReq)
	if getRR.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", getRR.Code)
	}
}

func TestMissingKeyIsForbidden(t *testing.T) {
	server, _ := newTestServer(t)

	rr := postThread(t, server, map[string]string{"room": "b"}, nil, "")
	id := decodeJSON(t, rr)["thread"].(map[string]any)["id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/thread?room=b&thread_id="+id, nil)
	delRR := httptest.NewRecorder()
	server.Handler().ServeHTTP(delRR, req)
	if delRR.Code != http.StatusForbidden {
		t.Errorf("expected 403 for missing key, got %d", delRR.Code)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestEmptyUploadIsIgnored(t *testing.T) {
	server, blobs := newTestServer(t)

	// A zero-byte file part behaves like no file at all.
	body, contentType := multipartBody(t, map[string]string{"room": "b", "text": "empty"}, "file", "empty.jpg", []byte{})
	req := httptest.NewRequest(http.MethodPost, "/api/thread", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	thread := decodeJSON(t, rr)["thread"].(map[string]any)
	if thread["image_id"] != nil {
		t.Errorf("expected null image_id for empty file, got %v", thread["image_id"])
	}
	if blobs.Len() != 0 {
		t.Errorf("empty upload stored %d blobs", blobs.Len())
	}
}
