package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-staff-api/internal/models"
)

func TestHashPasswordCommand(t *testing.T) {
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"hash-password", "Demo@123456"})

	require.NoError(t, root.Execute())
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Demo@123456")))
}

func TestDemoAccountsOnlyGiveStaffSlots(t *testing.T) {
	for _, acct := range demoAccounts() {
		if acct.role == models.RoleAdmin {
			assert.Empty(t, acct.slots, acct.email)
			continue
		}
		for _, slot := range acct.slots {
			_, ok := models.ParseWeekday(slot.DayOfWeek)
			assert.True(t, ok, slot.DayOfWeek)
			assert.True(t, slot.StartTime.Before(slot.EndTime))
		}
	}
}
