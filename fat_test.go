package fat12

import (
	"testing"

	"github.com/dsoprea/go-logging"
)

func TestFat_Entry(t *testing.T) {
	// Media byte, the reserved entry, then cluster 2 -> 3 and 3 -> 4.
	fat := Fat{0xf0, 0xff, 0xff, 0x03, 0x40, 0x00}

	expected := []MappedCluster{0xff0, 0xfff, 0x003, 0x004}

	for clusterNumber, want := range expected {
		mc, err := fat.Entry(uint32(clusterNumber))
		log.PanicIf(err)

		if mc != want {
			t.Fatalf("Entry (%d) not correct: (0x%03x) != (0x%03x)", clusterNumber, mc, want)
		}
	}
}

func TestFat_Entry__OutOfBounds(t *testing.T) {
	fat := make(Fat, 6)

	_, err := fat.Entry(3)
	log.PanicIf(err)

	_, err = fat.Entry(4)
	if err == nil {
		t.Fatalf("Expected error for entry beyond the table.")
	}
}

func TestFat_SetEntry(t *testing.T) {
	fat := make(Fat, 512*9)

	values := []MappedCluster{0xabc, 0x123, 0xfff, 0x000, 0x001, 0xff7, 0x7ff, 0x800, 0xf0f, 0x0f0}

	// Set pairs that share a byte, in both orders, so that a write that
	// clobbers its neighbor shows up.
	for i, value := range values {
		err := fat.SetEntry(uint32(100+i), value)
		log.PanicIf(err)
	}

	for i := len(values) - 1; i >= 0; i-- {
		err := fat.SetEntry(uint32(201+i), values[i])
		log.PanicIf(err)
	}

	for i, want := range values {
		mc, err := fat.Entry(uint32(100 + i))
		log.PanicIf(err)

		if mc != want {
			t.Fatalf("Entry (%d) not correct: (0x%03x) != (0x%03x)", 100+i, mc, want)
		}

		mc, err = fat.Entry(uint32(201 + i))
		log.PanicIf(err)

		if mc != want {
			t.Fatalf("Entry (%d) not correct: (0x%03x) != (0x%03x)", 201+i, mc, want)
		}
	}
}

func TestFat_SetEntry__Masked(t *testing.T) {
	fat := make(Fat, 6)

	err := fat.SetEntry(2, 0xffff)
	log.PanicIf(err)

	mc, err := fat.Entry(2)
	log.PanicIf(err)

	if mc != 0xfff {
		t.Fatalf("Value not masked to twelve bits: (0x%x)", mc)
	}

	mc, err = fat.Entry(3)
	log.PanicIf(err)

	if mc != 0 {
		t.Fatalf("Neighboring entry was modified: (0x%x)", mc)
	}
}

func TestFat_EntryCount(t *testing.T) {
	fat := make(Fat, 512*9)

	if fat.EntryCount() != 3072 {
		t.Fatalf("Entry count not correct: (%d)", fat.EntryCount())
	}
}

func TestMappedCluster_IsLast(t *testing.T) {
	for mc := MappedCluster(0xff8); mc <= 0xfff; mc++ {
		if mc.IsLast() != true {
			t.Fatalf("Expected (0x%03x) to end the chain.", mc)
		}
	}

	for _, mc := range []MappedCluster{0x000, 0x001, 0x002, 0xff0, 0xff7} {
		if mc.IsLast() == true {
			t.Fatalf("Did not expect (0x%03x) to end the chain.", mc)
		}
	}
}

func TestMappedCluster_String(t *testing.T) {
	tests := []struct {
		mc       MappedCluster
		expected string
	}{
		{mc: 0x000, expected: "MappedCluster<FREE>"},
		{mc: 0x001, expected: "MappedCluster<RESERVED>"},
		{mc: 0x0ff7, expected: "MappedCluster<BAD>"},
		{mc: 0x0ff8, expected: "MappedCluster<LAST=(0xff8)>"},
		{mc: 0x0fff, expected: "MappedCluster<LAST=(0xfff)>"},
		{mc: 0x0006, expected: "MappedCluster<NEXT=(6)>"},
	}

	for _, tt := range tests {
		if tt.mc.String() != tt.expected {
			t.Fatalf("String not correct: [%s] != [%s]", tt.mc.String(), tt.expected)
		}
	}
}

func TestFat12Reader_loadFat(t *testing.T) {
	f, fr := getParsedTestReader([]TestFile{
		{Name: "CHAIN.BIN", Data: make([]byte, 512*3), Clusters: []uint32{5, 6, 7}},
	})

	defer f.Close()

	fat := fr.Fat()

	expected := map[uint32]MappedCluster{
		0: 0xff0,
		1: 0xfff,
		2: 0x000,
		5: 0x006,
		6: 0x007,
		7: 0xfff,
		8: 0x000,
	}

	for clusterNumber, want := range expected {
		mc, err := fat.Entry(clusterNumber)
		log.PanicIf(err)

		if mc != want {
			t.Fatalf("Entry (%d) not correct: %s != %s", clusterNumber, mc, want)
		}
	}
}
