package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lightbounty/booking-site/internal/booking"
	"github.com/lightbounty/booking-site/internal/session"
	"github.com/lightbounty/booking-site/internal/sink"
	"github.com/lightbounty/booking-site/internal/submission"
	"github.com/lightbounty/booking-site/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const testSession = "visitor-1"

// fixedController always reports st.
type fixedController struct {
	st  submission.State
	err error
}

func (f *fixedController) Current(context.Context, string) (submission.State, error) {
	return f.st, f.err
}

func (f *fixedController) UpdateField(context.Context, string, string, string) (submission.State, error) {
	return f.st, f.err
}

func (f *fixedController) Dismiss(context.Context, string) (submission.State, error) {
	return f.st, f.err
}

func (f *fixedController) Submit(context.Context, string, ...submission.FieldEdit) (submission.State, error) {
	return f.st, f.err
}

func newRealHandler(s sink.Sink) (*Handler, *submission.Controller) {
	ctrl := submission.NewController(submission.NewMemoryStore(time.Hour), s, logging.Default())
	return NewHandler(ctrl, "https://instagram.com/lightbounty", logging.Default()), ctrl
}

func withSession(r *http.Request) *http.Request {
	return r.WithContext(session.WithID(r.Context(), testSession))
}

func renderPage(t *testing.T, h *Handler) *html.Node {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Page(rec, withSession(httptest.NewRequest(http.MethodGet, "/", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	doc, err := html.Parse(rec.Body)
	require.NoError(t, err)
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byID(doc *html.Node, id string) *html.Node {
	nodes := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	})
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func byTag(n *html.Node, tag string) []*html.Node {
	return findAll(n, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	})
}

func byClass(n *html.Node, class string) []*html.Node {
	return findAll(n, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	for _, t := range findAll(n, func(n *html.Node) bool { return n.Type == html.TextNode }) {
		b.WriteString(t.Data)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func selectedOption(t *testing.T, doc *html.Node, name string) (string, int) {
	t.Helper()
	selects := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "select" && attr(n, "name") == name
	})
	require.Len(t, selects, 1)
	opts := byTag(selects[0], "option")
	selected := ""
	for _, o := range opts {
		if hasAttr(o, "selected") {
			selected = text(o)
		}
	}
	return selected, len(opts)
}

func TestPage_Idle(t *testing.T) {
	h, _ := newRealHandler(sink.NewMemorySink())
	doc := renderPage(t, h)

	links := byTag(doc, "a")
	hrefs := map[string]int{}
	for _, a := range links {
		hrefs[attr(a, "href")]++
	}
	assert.Equal(t, 1, hrefs["#about"])
	assert.Equal(t, 1, hrefs["#pricing"])
	require.NotNil(t, byID(doc, "about"))
	require.NotNil(t, byID(doc, "pricing"))

	tiers := byClass(doc, "tier")
	require.Len(t, tiers, 3)
	for i, tier := range tiers {
		choose := byClass(tier, "choose-plan")
		require.Len(t, choose, 1)
		assert.Equal(t, "#booking", attr(choose[0], "href"))
		assert.Contains(t, text(tier), Tiers[i].Name)
		assert.Contains(t, text(tier), "$"+Tiers[i].Price)
	}
	assert.Len(t, byClass(doc, "recommended"), 1)

	button := byID(doc, "booking-submit")
	require.NotNil(t, button)
	assert.False(t, hasAttr(button, "disabled"))
	assert.Equal(t, "Submit Booking Request", text(button))
	assert.Empty(t, byClass(button, "spinner"))
	assert.Empty(t, byClass(doc, "error"))
	assert.Nil(t, byID(doc, "booking-confirmation"))

	category, n := selectedOption(t, doc, "category")
	assert.Equal(t, string(booking.DefaultCategory), category)
	assert.Equal(t, 5, n)
	plan, n := selectedOption(t, doc, "plan")
	assert.Equal(t, string(booking.DefaultPlan), plan)
	assert.Equal(t, 4, n)

	inputs := byTag(byID(doc, "booking-form"), "input")
	require.Len(t, inputs, 2)
	assert.Equal(t, "full_name", attr(inputs[0], "name"))
	assert.True(t, hasAttr(inputs[0], "required"))
	assert.Equal(t, "email", attr(inputs[1], "type"))
	textareas := byTag(doc, "textarea")
	require.Len(t, textareas, 1)
	assert.True(t, hasAttr(textareas[0], "required"))
}

func TestPage_Submitting(t *testing.T) {
	st := submission.NewState()
	st.Phase = submission.PhaseSubmitting
	h := NewHandler(&fixedController{st: st}, "", nil)

	doc := renderPage(t, h)
	button := byID(doc, "booking-submit")
	require.NotNil(t, button)
	assert.True(t, hasAttr(button, "disabled"))
	assert.Len(t, byClass(button, "spinner"), 1)
	assert.Equal(t, "Processing...", text(button))
}

func TestPage_FailedShowsErrorAndKeepsFields(t *testing.T) {
	st := submission.NewState()
	st.Fields.FullName = "Jane <Doe>"
	st.Fields.Message = "Serum launch"
	st = submission.Fail(st, &sink.RemoteError{Message: "quota exceeded"})
	h := NewHandler(&fixedController{st: st}, "", nil)

	doc := renderPage(t, h)
	errs := byClass(doc, "error")
	require.Len(t, errs, 1)
	assert.Equal(t, "quota exceeded", text(errs[0]))

	button := byID(doc, "booking-submit")
	assert.False(t, hasAttr(button, "disabled"))
	assert.Equal(t, "Submit Booking Request", text(button))

	inputs := byTag(byID(doc, "booking-form"), "input")
	assert.Equal(t, "Jane <Doe>", attr(inputs[0], "value"))
	assert.Equal(t, "Serum launch", text(byTag(doc, "textarea")[0]))
}

func TestPage_SucceededShowsConfirmation(t *testing.T) {
	st := submission.Succeed(submission.NewState())
	h := NewHandler(&fixedController{st: st}, "https://instagram.com/studio", nil)

	doc := renderPage(t, h)
	dialog := byID(doc, "booking-confirmation")
	require.NotNil(t, dialog)
	assert.Contains(t, text(dialog), "Thank you for reaching out.")
	assert.Contains(t, text(dialog), "our team will email you shortly")

	var instagram *html.Node
	for _, a := range byTag(dialog, "a") {
		if text(a) == "Instagram" {
			instagram = a
		}
	}
	require.NotNil(t, instagram)
	assert.Equal(t, "https://instagram.com/studio", attr(instagram, "href"))

	forms := byTag(dialog, "form")
	require.Len(t, forms, 1)
	assert.Equal(t, "/booking/dismiss", attr(forms[0], "action"))
	assert.Equal(t, "Close", text(forms[0]))
}

func TestPage_StoreFailure(t *testing.T) {
	h := NewHandler(&fixedController{err: errors.New("redis down")}, "", nil)
	rec := httptest.NewRecorder()
	h.Page(rec, withSession(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis down")
}

func TestPage_RequiresSession(t *testing.T) {
	h := NewHandler(&fixedController{st: submission.NewState()}, "", nil)
	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func postForm(h http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, withSession(req))
	return rec
}

func validForm() url.Values {
	return url.Values{
		"full_name": {"Jane Doe"},
		"email":     {"jane@brand.com"},
		"category":  {string(booking.CategoryTech)},
		"plan":      {string(booking.PlanSignature)},
		"message":   {"Headphones launch"},
	}
}

func TestSubmitForm_SuccessRedirectsAndOpensConfirmation(t *testing.T) {
	mem := sink.NewMemorySink()
	h, ctrl := newRealHandler(mem)

	rec := postForm(h.SubmitForm, "/booking", validForm())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/#booking", rec.Header().Get("Location"))

	rows := mem.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, booking.Payload{
		FullName: "Jane Doe",
		Email:    "jane@brand.com",
		Category: string(booking.CategoryTech),
		Plan:     string(booking.PlanSignature),
		Message:  "Headphones launch",
	}, rows[0])

	st, err := ctrl.Current(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, submission.PhaseSucceeded, st.Phase)

	doc := renderPage(t, h)
	require.NotNil(t, byID(doc, "booking-confirmation"))
	inputs := byTag(byID(doc, "booking-form"), "input")
	assert.Empty(t, attr(inputs[0], "value"), "form resets after success")

	rec = postForm(h.DismissForm, "/booking/dismiss", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, byID(renderPage(t, h), "booking-confirmation"))
}

func TestSubmitForm_SinkFailureShownInline(t *testing.T) {
	h, _ := newRealHandler(sink.Func(func(context.Context, booking.Request) error {
		return &sink.RemoteError{Message: "quota exceeded", Status: http.StatusTooManyRequests}
	}))

	rec := postForm(h.SubmitForm, "/booking", validForm())
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	doc := renderPage(t, h)
	errs := byClass(doc, "error")
	require.Len(t, errs, 1)
	assert.Equal(t, "quota exceeded", text(errs[0]))
	assert.Equal(t, "Jane Doe", attr(byTag(byID(doc, "booking-form"), "input")[0], "value"))
	plan, _ := selectedOption(t, doc, "plan")
	assert.Equal(t, string(booking.PlanSignature), plan)
}

func TestSubmitForm_EmptyNameNeverReachesSink(t *testing.T) {
	mem := sink.NewMemorySink()
	h, _ := newRealHandler(mem)

	form := validForm()
	form.Set("full_name", "")
	postForm(h.SubmitForm, "/booking", form)

	assert.Empty(t, mem.Rows())
	errs := byClass(renderPage(t, h), "error")
	require.Len(t, errs, 1)
	assert.Equal(t, booking.ErrMissingFullName.Error(), text(errs[0]))
}

func TestSubmitForm_StoreFailure(t *testing.T) {
	h := NewHandler(&fixedController{err: errors.New("redis down")}, "", nil)
	rec := postForm(h.SubmitForm, "/booking", validForm())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) submission.State {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var st submission.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return withSession(req)
}

func TestAPI_PatchAndSubmit(t *testing.T) {
	mem := sink.NewMemorySink()
	h, _ := newRealHandler(mem)

	rec := httptest.NewRecorder()
	h.GetState(rec, withSession(httptest.NewRequest(http.MethodGet, "/api/booking", nil)))
	st := decodeState(t, rec)
	assert.Equal(t, submission.PhaseIdle, st.Phase)
	assert.Equal(t, booking.NewRequest(), st.Fields)

	rec = httptest.NewRecorder()
	h.PatchField(rec, jsonRequest(http.MethodPatch, "/api/booking/fields", `{"name":"full_name","value":"Jane Doe"}`))
	st = decodeState(t, rec)
	assert.Equal(t, "Jane Doe", st.Fields.FullName)

	rec = httptest.NewRecorder()
	h.SubmitJSON(rec, jsonRequest(http.MethodPost, "/api/booking/submit",
		`{"edits":[{"name":"email","value":"jane@brand.com"},{"name":"message","value":"Sneakers"}]}`))
	st = decodeState(t, rec)
	assert.Equal(t, submission.PhaseSucceeded, st.Phase)

	rows := mem.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane Doe", rows[0].FullName)
	assert.Equal(t, "Sneakers", rows[0].Message)
}

func TestAPI_SubmitEmptyBodyUsesStoredFields(t *testing.T) {
	h, _ := newRealHandler(sink.NewMemorySink())

	rec := httptest.NewRecorder()
	h.SubmitJSON(rec, withSession(httptest.NewRequest(http.MethodPost, "/api/booking/submit", nil)))
	st := decodeState(t, rec)
	assert.Equal(t, submission.PhaseFailed, st.Phase)
	assert.Equal(t, booking.ErrMissingFullName.Error(), st.LastError)
}

func TestAPI_PatchRejectsBadInput(t *testing.T) {
	h, _ := newRealHandler(sink.NewMemorySink())

	rec := httptest.NewRecorder()
	h.PatchField(rec, jsonRequest(http.MethodPatch, "/api/booking/fields", `{"name":"phone","value":"555"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.PatchField(rec, jsonRequest(http.MethodPatch, "/api/booking/fields", `{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.SubmitJSON(rec, jsonRequest(http.MethodPost, "/api/booking/submit", `{"unexpected":true}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler(&fixedController{}, "", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
