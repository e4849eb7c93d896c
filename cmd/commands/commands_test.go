/*
Copyright 2024 The Cryoproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package commands

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Commands(t *testing.T) {

	t.Run("root execute", func(t *testing.T) {
		assert.NotPanics(t, Execute, "help")
	})

	t.Run("test root", func(t *testing.T) {
		b := bytes.NewBufferString("")
		rootCmd.SetOut(b)
		rootCmd.SetArgs([]string{"help"})
		Execute()
		output, _ := io.ReadAll(b)
		assert.Contains(t, string(output), "Available Commands")
	})

	t.Run("Info", func(t *testing.T) {
		cmd := NewInfoCommand()
		assert.Equal(t, "info <variable>", cmd.Use)
		err := cmd.Execute()
		assert.Error(t, err, "a variable name is required")
	})

	t.Run("Validate", func(t *testing.T) {
		cmd := NewValidateCommand()
		assert.True(t, cmd.HasLocalFlags())
		assert.Equal(t, "validate <variable>", cmd.Use)
		assert.Equal(t, "float64", cmd.Flag("period").Value.Type())
		assert.Equal(t, "float64", cmd.Flag("reference").Value.Type())
	})

	t.Run("Sample", func(t *testing.T) {
		cmd := NewSampleCommand()
		assert.True(t, cmd.HasLocalFlags())
		assert.Equal(t, "sample <variable>", cmd.Use)
		assert.Equal(t, "float64", cmd.Flag("from").Value.Type())
		assert.Equal(t, "float64", cmd.Flag("to").Value.Type())
		assert.Equal(t, "int", cmd.Flag("samples").Value.Type())
		assert.Equal(t, "string", cmd.Flag("mode").Value.Type())
		cmd.SetArgs([]string{"smb", "--mode=nonono"})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		err := cmd.Execute()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported interpolation mode")
	})

	t.Run("Version", func(t *testing.T) {
		b := bytes.NewBufferString("")
		cmd := NewVersionCommand()
		cmd.SetOut(b)
		cmd.SetArgs([]string{})
		assert.NoError(t, cmd.Execute())
		output, _ := io.ReadAll(b)
		assert.Contains(t, string(output), "Version:")
	})
}
