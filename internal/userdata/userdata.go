// Package userdata renders and compresses the EC2 instance bootstrap
// script.
package userdata

import (
	"bytes"
	"compress/gzip"
	"crypto/rand"
	"fmt"
	"text/template"

	"github.com/GoCodeAlone/geuse/internal/errs"
)

const maxCompressedBytes = 16384

const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

const scriptTemplate = `#!/bin/bash
set -euo pipefail

STACK_NAME="{{.StackName}}"
TIER="{{.Tier}}"
REGION="{{.Region}}"
FILESYSTEM_ID="{{.FilesystemID}}"
FILESYSTEM_DNS="{{.FilesystemDNS}}"
APP_PASSWORD="{{.Password}}"

mkdir -p /mnt/data
{{if .FilesystemDNS}}mount -t efs "${FILESYSTEM_DNS}":/ /mnt/data{{end}}

echo "bootstrapping ${STACK_NAME} (${TIER}) in ${REGION}"
`

// Params parameterizes the rendered user-data script.
type Params struct {
	StackName     string
	Tier          string
	Region        string
	FilesystemID  string
	FilesystemDNS string
}

type renderData struct {
	Params
	Password string
}

// Render produces a gzip-compressed user-data script. It returns
// errs.ErrUserDataTooLarge when the compressed payload exceeds the
// provider's 16 KiB limit.
func Render(p Params) ([]byte, error) {
	password, err := generatePassword(32)
	if err != nil {
		return nil, fmt.Errorf("userdata: generate password: %w", err)
	}

	tmpl, err := template.New("userdata").Parse(scriptTemplate)
	if err != nil {
		return nil, fmt.Errorf("userdata: parse template: %w", err)
	}

	var script bytes.Buffer
	if err := tmpl.Execute(&script, renderData{Params: p, Password: password}); err != nil {
		return nil, fmt.Errorf("userdata: render template: %w", err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(script.Bytes()); err != nil {
		return nil, fmt.Errorf("userdata: gzip: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("userdata: gzip close: %w", err)
	}

	if compressed.Len() > maxCompressedBytes {
		return nil, errs.ErrUserDataTooLarge
	}
	return compressed.Bytes(), nil
}

func generatePassword(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = passwordAlphabet[int(b)%len(passwordAlphabet)]
	}
	return string(out), nil
}
