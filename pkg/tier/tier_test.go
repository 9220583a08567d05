package tier

import (
	"strings"
	"testing"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
)

func TestCheckNthAction(t *testing.T) {
	for _, tr := range []Tier{Anonymous, Free, Paid} {
		for _, action := range []Action{ActionAnalysis, ActionComparison, ActionCopilot, ActionPDFDownload} {
			limit := Ceiling(tr, action)
			if limit == Unlimited {
				for used := 0; used < 500; used += 50 {
					if err := Check(tr, action, used); err != nil {
						t.Errorf("%s/%s unlimited, Check(%d) = %v", tr, action, used, err)
					}
				}
				continue
			}
			// The Nth action runs with N-1 prior actions counted.
			for n := 1; n <= limit+2; n++ {
				err := Check(tr, action, n-1)
				if n <= limit && err != nil {
					t.Errorf("%s/%s action %d of %d denied: %v", tr, action, n, limit, err)
				}
				if n > limit && !apperr.IsKind(err, apperr.KindQuota) {
					t.Errorf("%s/%s action %d of %d allowed (err=%v)", tr, action, n, limit, err)
				}
			}
		}
	}
}

func TestAnonymousSecondAnalysisNamesLimit(t *testing.T) {
	if err := Check(Anonymous, ActionAnalysis, 0); err != nil {
		t.Fatalf("first analysis denied: %v", err)
	}
	err := Check(Anonymous, ActionAnalysis, 1)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindQuota {
		t.Fatalf("second analysis error = %v, want quota", err)
	}
	if !strings.Contains(appErr.Message, "allows 1 per day") || !strings.Contains(appErr.Message, "anonymous") {
		t.Errorf("message = %q, want ceiling and tier named", appErr.Message)
	}
	if appErr.Code != "ANALYSIS_LIMIT_EXCEEDED" {
		t.Errorf("code = %q", appErr.Code)
	}
	details, _ := appErr.Details.(apperr.QuotaDetails)
	if details.Limit != 1 || details.Used != 1 || details.Tier != "anonymous" {
		t.Errorf("details = %+v", details)
	}
	if apperr.StatusCode(err) != 403 {
		t.Errorf("status = %d, want 403", apperr.StatusCode(err))
	}
}

func TestCheckSession(t *testing.T) {
	limit := For(Free).ChatMessagesPerSession
	for n := 1; n <= limit; n++ {
		if err := CheckSession(Free, n); err != nil {
			t.Errorf("message %d of %d denied: %v", n, limit, err)
		}
	}
	err := CheckSession(Free, limit+1)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Code != "CHAT_LIMIT_EXCEEDED" {
		t.Fatalf("CheckSession(%d) = %v, want CHAT_LIMIT_EXCEEDED", limit+1, err)
	}
	if !strings.Contains(appErr.Message, "per chat session") {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestPDFDownloads(t *testing.T) {
	err := Check(Anonymous, ActionPDFDownload, 0)
	if appErr, ok := apperr.As(err); !ok || appErr.Code != "PDF_DOWNLOAD_LIMIT_EXCEEDED" {
		t.Errorf("anonymous pdf = %v, want PDF_DOWNLOAD_LIMIT_EXCEEDED", err)
	}
	if Remaining(Paid, ActionPDFDownload, 1000) != Unlimited {
		t.Error("paid pdf downloads should be unlimited")
	}
}

func TestRemaining(t *testing.T) {
	if got := Remaining(Paid, ActionAnalysis, 10); got != 40 {
		t.Errorf("Remaining = %d, want 40", got)
	}
	if got := Remaining(Free, ActionAnalysis, 3); got != 0 {
		t.Errorf("Remaining over limit = %d, want 0", got)
	}
}

func TestFeatureFlags(t *testing.T) {
	if For(Free).DeepThink || For(Anonymous).DeepSearch {
		t.Error("deep modes must be paid only")
	}
	if !For(Paid).DeepThink || !For(Paid).DeepSearch || For(Paid).Watermark {
		t.Error("paid tier flags wrong")
	}
	if For("bogus") != For(Anonymous) {
		t.Error("unknown tier should fall back to anonymous limits")
	}
}
