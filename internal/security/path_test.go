package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid relative path",
			path:    "data/herald.db",
			wantErr: false,
		},
		{
			name:    "valid absolute path",
			path:    "/var/lib/herald/herald.db",
			wantErr: false,
		},
		{
			name:    "valid path with dot in filename",
			path:    "config/herald.config.json",
			wantErr: false,
		},
		{
			name:    "current directory prefix",
			path:    "./config.json",
			wantErr: false,
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
			errMsg:  "path cannot be empty",
		},
		{
			name:    "directory traversal",
			path:    "../../../etc/passwd",
			wantErr: true,
			errMsg:  "path contains directory traversal",
		},
		{
			name:    "embedded traversal",
			path:    "config/../../../etc/passwd",
			wantErr: true,
			errMsg:  "path contains directory traversal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilePathStrict(t *testing.T) {
	assert.NoError(t, ValidateFilePathStrict("config.json"))
	assert.NoError(t, ValidateFilePathStrict("config/app.json"))

	err := ValidateFilePathStrict("/etc/config.json")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "absolute paths not allowed")

	assert.Error(t, ValidateFilePathStrict(""))
	assert.Error(t, ValidateFilePathStrict("../config.json"))
}

func TestValidateFilePathWithBase(t *testing.T) {
	base := filepath.Join("var", "lib", "herald")

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name:    "path within base",
			path:    "herald.db",
			wantErr: false,
		},
		{
			name:    "nested path within base",
			path:    filepath.Join("backups", "herald.db"),
			wantErr: false,
		},
		{
			name:    "traversal rejected before resolution",
			path:    filepath.Join("..", "escape.db"),
			wantErr: true,
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePathWithBase(tt.path, base)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
