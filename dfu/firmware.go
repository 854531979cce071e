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
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// ManifestData is the parsed manifest.json metadata for a firmware
// package: device type, firmware CRC16, and DFU protocol version, plus
// the member names used to pull the binary and init packet out of the
// archive.
type ManifestData struct {
	DeviceType    uint16
	FirmwareCrc16 uint16
	DfuVersion    float32
	binFile       string
	datFile       string
}

// FirmwarePackage is the fully-read contents of a firmware.zip: init
// packet, application image, and manifest, all held in memory — typical
// images are well under a megabyte, so eager reads keep the rest of the
// engine free of partial-read bookkeeping.
type FirmwarePackage struct {
	InitData     []byte
	FirmwareData []byte
	Manifest     ManifestData
}

type rawManifest struct {
	Manifest struct {
		Application struct {
			BinFile        string `json:"bin_file"`
			DatFile        string `json:"dat_file"`
			InitPacketData struct {
				ApplicationVersion uint32   `json:"application_version"`
				DeviceRevision     uint16   `json:"device_revision"`
				DeviceType         uint16   `json:"device_type"`
				FirmwareCrc16      uint16   `json:"firmware_crc16"`
				SoftdeviceReq      []uint16 `json:"softdevice_req"`
			} `json:"init_packet_data"`
		} `json:"application"`
		DfuVersion float32 `json:"dfu_version"`
	} `json:"manifest"`
}

// ReadFirmwareZip opens a firmware.zip at path, parses manifest.json,
// and eagerly reads the init packet (firmware.dat) and firmware image
// (firmware.bin) named inside it.
func ReadFirmwareZip(path string) (*FirmwarePackage, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, wrapf(KindIo, err, "opening firmware package %q", path)
	}
	defer r.Close()

	manifest, err := readManifest(&r.Reader)
	if err != nil {
		return nil, err
	}

	initData, err := readZipMember(&r.Reader, manifest.datFile)
	if err != nil {
		return nil, err
	}

	firmwareData, err := readZipMember(&r.Reader, manifest.binFile)
	if err != nil {
		return nil, err
	}

	return &FirmwarePackage{
		InitData:     initData,
		FirmwareData: firmwareData,
		Manifest:     *manifest,
	}, nil
}

func readManifest(archive *zip.Reader) (*ManifestData, error) {
	f, err := archive.Open("manifest.json")
	if err != nil {
		return nil, errf(KindMissingFile, "manifest.json")
	}
	defer f.Close()

	contents, err := io.ReadAll(f)
	if err != nil {
		return nil, wrapf(KindIo, err, "reading manifest.json")
	}

	var raw rawManifest
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, wrapf(KindInvalidManifest, err, "parsing manifest.json")
	}

	app := raw.Manifest.Application
	return &ManifestData{
		DeviceType:    app.InitPacketData.DeviceType,
		FirmwareCrc16: app.InitPacketData.FirmwareCrc16,
		DfuVersion:    raw.Manifest.DfuVersion,
		binFile:       app.BinFile,
		datFile:       app.DatFile,
	}, nil
}

func readZipMember(archive *zip.Reader, name string) ([]byte, error) {
	f, err := archive.Open(name)
	if err != nil {
		return nil, errf(KindMissingFile, name)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(wrapf(KindIo, err, "reading %s", name), "firmware package member %q", name)
	}
	return data, nil
}
