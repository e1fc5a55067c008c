package sector

import (
	"bytes"
	"testing"

	"github.com/sergev/fluxkit/classify"
)

func TestExtractC64_RoundTrip(t *testing.T) {
	var specs []c64SectorSpec
	for i := 0; i < 6; i++ {
		specs = append(specs, c64SectorSpec{
			track:  18,
			sector: i,
			id1:    0x30,
			id2:    0x41,
			data:   patternData(256, byte(i+1)),
		})
	}
	bits := buildC64Track(specs)

	result := extractHelper(t, bits, classify.GCR, Options{})
	if result.Variant != VariantC64 {
		t.Fatalf("got variant %v, expected C64 GCR", result.Variant)
	}
	if len(result.Records) != len(specs) {
		t.Fatalf("got %d records, expected %d", len(result.Records), len(specs))
	}
	for i, r := range result.Records {
		if r.Track != 18 || r.Sector != i {
			t.Errorf("record %d: got track/sector %d/%d", i, r.Track, r.Sector)
		}
		if !r.HeaderOK || !r.DataOK {
			t.Errorf("record %d: checksum flags %v/%v", i, r.HeaderOK, r.DataOK)
		}
		if len(r.Data) != 256 || r.SizeCode != 1 {
			t.Errorf("record %d: got %d bytes, size code %d", i, len(r.Data), r.SizeCode)
		}
		if !bytes.Equal(r.Data, specs[i].data) {
			t.Errorf("record %d: data mismatch", i)
		}
	}
}

func TestExtractC64_ChecksumFlags(t *testing.T) {
	bits := buildC64Track([]c64SectorSpec{
		{track: 1, sector: 0, data: patternData(256, 1), corruptHeader: true},
		{track: 1, sector: 1, data: patternData(256, 2), corruptDataChk: true},
	})

	result, err := Extract(bits, classify.GCR, Options{Variant: VariantC64})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("got %d records, expected 2", len(result.Records))
	}
	if result.Records[0].HeaderOK {
		t.Error("record 0: corrupt header checksum not flagged")
	}
	if !result.Records[0].DataOK {
		t.Error("record 0: clean data flagged bad")
	}
	if result.Records[1].DataOK {
		t.Error("record 1: corrupt data checksum not flagged")
	}
}

func TestExtractApple_RoundTrip(t *testing.T) {
	var specs []appleSectorSpec
	for i := 0; i < 6; i++ {
		specs = append(specs, appleSectorSpec{
			volume: 254,
			track:  17,
			sector: i,
			data:   patternData(256, byte(i+1)),
		})
	}
	bits := buildAppleTrack(specs)

	result := extractHelper(t, bits, classify.GCR, Options{})
	if result.Variant != VariantApple {
		t.Fatalf("got variant %v, expected Apple GCR", result.Variant)
	}
	if len(result.Records) != len(specs) {
		t.Fatalf("got %d records, expected %d", len(result.Records), len(specs))
	}
	for i, r := range result.Records {
		if r.Track != 17 || r.Sector != i {
			t.Errorf("record %d: got track/sector %d/%d", i, r.Track, r.Sector)
		}
		if !r.HeaderOK || !r.DataOK {
			t.Errorf("record %d: checksum flags %v/%v", i, r.HeaderOK, r.DataOK)
		}
		if !bytes.Equal(r.Data, specs[i].data) {
			t.Errorf("record %d: data mismatch after 6-and-2 decode", i)
		}
	}
}

func TestExtractApple_CorruptChecksum(t *testing.T) {
	bits := buildAppleTrack([]appleSectorSpec{
		{volume: 254, track: 3, sector: 0, data: patternData(256, 7), corruptDataChk: true},
	})

	result, err := Extract(bits, classify.GCR, Options{Variant: VariantApple})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("got %d records, expected 1", len(result.Records))
	}
	if result.Records[0].DataOK {
		t.Error("corrupt data checksum not flagged")
	}
	if !result.Records[0].HeaderOK {
		t.Error("clean header flagged bad")
	}
}

func TestGCRTables_Inverse(t *testing.T) {
	for v := byte(0); v < 16; v++ {
		if gcrDecode[gcrEncode[v]] != v {
			t.Errorf("GCR tables disagree at %#x", v)
		}
	}
	for v := 0; v < 64; v++ {
		if apple62Decode[apple62Encode[v]] != byte(v) {
			t.Errorf("6-and-2 tables disagree at %#x", v)
		}
	}
}
