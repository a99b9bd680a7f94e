// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVoiceprint(t *testing.T) (*Voiceprint, string, string) {
	t.Helper()
	dir := t.TempDir()
	staging := filepath.Join(dir, "voiceprint_staging.txt")
	prod := filepath.Join(dir, "voiceprint_prod.txt")
	return NewVoiceprint(staging, prod), staging, prod
}

func TestVoiceprintLoad_DefaultWhenMissing(t *testing.T) {
	v, _, _ := testVoiceprint(t)
	text, path := v.Load()
	assert.Equal(t, DefaultVoiceprint, text)
	assert.Empty(t, path)
}

func TestVoiceprintLoad_PrefersStagingOverProd(t *testing.T) {
	v, staging, prod := testVoiceprint(t)
	require.NoError(t, os.WriteFile(prod, []byte("prod voice\n"), 0o644))

	text, path := v.Load()
	assert.Equal(t, "prod voice", text)
	assert.Equal(t, prod, path)

	require.NoError(t, os.WriteFile(staging, []byte("staging voice\n"), 0o644))
	text, path = v.Load()
	assert.Equal(t, "staging voice", text)
	assert.Equal(t, staging, path)
}

func TestVoiceprintLoad_BlankStagingFallsThrough(t *testing.T) {
	v, staging, prod := testVoiceprint(t)
	require.NoError(t, os.WriteFile(staging, []byte("   \n"), 0o644))
	require.NoError(t, os.WriteFile(prod, []byte("prod voice"), 0o644))
	text, path := v.Load()
	assert.Equal(t, "prod voice", text)
	assert.Equal(t, prod, path)
}

func TestVoiceprintSet_Replace(t *testing.T) {
	v, staging, _ := testVoiceprint(t)
	n, err := v.Set("be direct", false)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	data, err := os.ReadFile(staging)
	require.NoError(t, err)
	assert.Equal(t, "be direct\n", string(data))
}

func TestVoiceprintSet_AppendAndBackup(t *testing.T) {
	v, staging, _ := testVoiceprint(t)
	_, err := v.Set("first rule", false)
	require.NoError(t, err)
	_, err = v.Set("second rule", true)
	require.NoError(t, err)

	data, err := os.ReadFile(staging)
	require.NoError(t, err)
	assert.Equal(t, "first rule\n\nsecond rule\n", string(data))

	bak, err := os.ReadFile(staging + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "first rule\n", string(bak))
}

func TestVoiceprintSet_AppendToEmptyActsAsReplace(t *testing.T) {
	v, staging, _ := testVoiceprint(t)
	_, err := v.Set("only rule", true)
	require.NoError(t, err)
	data, err := os.ReadFile(staging)
	require.NoError(t, err)
	assert.Equal(t, "only rule\n", string(data))
}
