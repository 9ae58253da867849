package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateAssignsID(t *testing.T) {
	m := &BaseModel{}
	require.NoError(t, m.BeforeCreate(nil))
	require.NotEmpty(t, m.ID)

	assigned := &BaseModel{ID: "fixed-id"}
	require.NoError(t, assigned.BeforeCreate(nil))
	require.Equal(t, "fixed-id", assigned.ID)
}
