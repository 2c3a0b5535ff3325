package profileform

import (
	"testing"

	"github.com/nhle/alloci/internal/model"
)

func TestRegisterSubmitTrimsFields(t *testing.T) {
	m := New(80, 30)
	m.StartRegister()
	m.fb.firstName = "  Awa "
	m.fb.lastName = "Koné"
	m.fb.phone = " 0700000000"
	m.fb.acceptTerms = true

	msg, ok := m.handleSubmit()().(RegisterMsg)
	if !ok {
		t.Fatal("expected RegisterMsg")
	}
	in := msg.Input
	if in.FirstName != "Awa" || in.Phone != "0700000000" || in.PreferredLang != "fr" || !in.AcceptTerms {
		t.Fatalf("input = %+v", in)
	}
}

func TestEditSubmitSendsLangAndCity(t *testing.T) {
	m := New(80, 30)
	m.StartEdit(model.User{ID: "u1", FirstName: "Awa", City: "Daloa"})
	m.fb.city = "Bouaké"

	msg, ok := m.handleSubmit()().(UpdateMsg)
	if !ok {
		t.Fatal("expected UpdateMsg")
	}
	upd := msg.Update
	if upd.City == nil || *upd.City != "Bouaké" || upd.PreferredLang == nil || *upd.PreferredLang != "fr" {
		t.Fatalf("update = %+v", upd)
	}
	if upd.FirstName != nil {
		t.Fatal("editor must not touch the name")
	}
}

func TestValidators(t *testing.T) {
	cases := []struct {
		email string
		ok    bool
	}{
		{"", true},
		{"awa@example.ci", true},
		{"awa", false},
		{"@example.ci", false},
		{"awa@", false},
		{"a wa@x.ci", false},
	}
	for _, tc := range cases {
		if err := validateOptionalEmail(tc.email); (err == nil) != tc.ok {
			t.Errorf("validateOptionalEmail(%q) err = %v", tc.email, err)
		}
	}
	if validateAccepted(false) == nil {
		t.Error("terms must be accepted")
	}
	if validateRequired("Nom")("  ") == nil {
		t.Error("blank name must be rejected")
	}
}
