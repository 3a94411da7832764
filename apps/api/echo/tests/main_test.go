package tests

import (
	"os"
	"testing"
	"time"

	"github.com/mavuno/sokoni/core"
)

func TestMain(m *testing.M) {
	core.Conf = &core.Config{
		TestMode:                  true,
		Env:                       "test",
		AppName:                   "Sokoni",
		SecretKey:                 "sekrit",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          "noreply@test.cd",
		LowStockLevel:             5,
		SessionTTL:                1 * time.Hour,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	os.Exit(m.Run())
}
