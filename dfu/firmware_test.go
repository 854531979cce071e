// Copyright (C) 2018 Rob Caelers <rob.caelers@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package dfu

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `{
	"manifest": {
		"application": {
			"bin_file": "firmware.bin",
			"dat_file": "firmware.dat",
			"init_packet_data": {
				"application_version": 4294967295,
				"device_revision": 65535,
				"device_type": 82,
				"firmware_crc16": 18974,
				"softdevice_req": [182]
			}
		},
		"dfu_version": 0.5
	}
}`

func writeTestZip(t *testing.T, manifest string, includeBin, includeDat bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firmware.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	if manifest != "" {
		mw, err := w.Create("manifest.json")
		require.NoError(t, err)
		_, err = mw.Write([]byte(manifest))
		require.NoError(t, err)
	}
	if includeBin {
		bw, err := w.Create("firmware.bin")
		require.NoError(t, err)
		_, err = bw.Write([]byte{0x01, 0x02, 0x03, 0x04})
		require.NoError(t, err)
	}
	if includeDat {
		dw, err := w.Create("firmware.dat")
		require.NoError(t, err)
		_, err = dw.Write([]byte{0x0A, 0x0B, 0x0C})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestReadValidFirmwareZip(t *testing.T) {
	path := writeTestZip(t, validManifest, true, true)

	pkg, err := ReadFirmwareZip(path)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, pkg.FirmwareData)
	assert.Equal(t, []byte{0x0A, 0x0B, 0x0C}, pkg.InitData)
	assert.Equal(t, uint16(82), pkg.Manifest.DeviceType)
	assert.Equal(t, uint16(18974), pkg.Manifest.FirmwareCrc16)
	assert.Equal(t, float32(0.5), pkg.Manifest.DfuVersion)
}

func TestReadFirmwareZipMissingManifest(t *testing.T) {
	path := writeTestZip(t, "", true, true)

	_, err := ReadFirmwareZip(path)
	require.Error(t, err)
	var de *DfuError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindMissingFile, de.Kind)
}

func TestReadFirmwareZipMissingBin(t *testing.T) {
	path := writeTestZip(t, validManifest, false, true)

	_, err := ReadFirmwareZip(path)
	require.Error(t, err)
	var de *DfuError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindMissingFile, de.Kind)
}

func TestReadFirmwareZipMissingDat(t *testing.T) {
	path := writeTestZip(t, validManifest, true, false)

	_, err := ReadFirmwareZip(path)
	require.Error(t, err)
	var de *DfuError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindMissingFile, de.Kind)
}

func TestReadFirmwareZipMalformedManifest(t *testing.T) {
	path := writeTestZip(t, "{not json", true, true)

	_, err := ReadFirmwareZip(path)
	require.Error(t, err)
	var de *DfuError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindInvalidManifest, de.Kind)
}
