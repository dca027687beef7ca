package autherr

import (
	"errors"
	"net/http"
	"testing"
)

func TestResultOkAndErr(t *testing.T) {
	ok := Ok(42)
	if !ok.OK() || ok.Value() != 42 || ok.Err() != nil || ok.Code() != "" {
		t.Fatalf("unexpected ok result: %+v", ok)
	}
	v, err := ok.Unwrap()
	if err != nil || v != 42 {
		t.Fatalf("Unwrap failed: %v %v", v, err)
	}

	bad := Err[int](SessionNotFound, "Session not found.")
	if bad.OK() || bad.Code() != SessionNotFound {
		t.Fatalf("unexpected err result: %+v", bad)
	}
	_, err = bad.Unwrap()
	var ae *Error
	if !errors.As(err, &ae) || ae.Code != SessionNotFound {
		t.Fatalf("expected *Error with SESSION_NOT_FOUND, got %v", err)
	}
	if ae.Error() != "SESSION_NOT_FOUND: Session not found." {
		t.Fatalf("unexpected message %q", ae.Error())
	}
}

func TestFromKeepsFailure(t *testing.T) {
	src := Internal[string]("Failed to save session.")
	dst := From[bool](src)
	if dst.OK() || dst.Code() != InternalError || dst.Err().Message != "Failed to save session." {
		t.Fatalf("unexpected converted result: %+v", dst.Err())
	}
}

func TestStatusTable(t *testing.T) {
	tests := map[Code]int{
		InvalidEmailOrPassword: http.StatusUnauthorized,
		InvalidCredentials:     http.StatusUnauthorized,
		EmailNotVerified:       http.StatusForbidden,
		FeatureDisabled:        http.StatusForbidden,
		ProviderNotFound:       http.StatusNotFound,
		SessionNotFound:        http.StatusNotFound,
		UserAlreadyExists:      http.StatusBadRequest,
		PasswordTooShort:       http.StatusBadRequest,
		InvalidInput:           http.StatusBadRequest,
		FailedToCreateSession:  http.StatusBadRequest,
		Code("SOMETHING_NEW"):  http.StatusBadRequest,
	}
	for code, want := range tests {
		if got := Status(code); got != want {
			t.Fatalf("Status(%s) = %d, want %d", code, got, want)
		}
	}
}
