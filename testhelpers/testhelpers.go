package testhelpers

import (
	"bytes"
	"testing"
)

func AssertEqual(t *testing.T, name string, v1 interface{}, v2 interface{}) bool {
	if v1 != v2 {
		t.Errorf("\x1b[1m\x1b[35m%v mismatch. Expecting [%v], got [%v]\x1b[0m", name, v1, v2)
		return false
	} else {
		t.Logf("%v OK: [%v]", name, v1)
	}
	return true
}

func AssertSliceEqual(t *testing.T, name string, v1 []byte, v2 []byte) bool {
	if !bytes.Equal(v1, v2) {
		t.Errorf("\x1b[1m\x1b[35m%v mismatch. Expecting [%v], got [%v]\x1b[0m", name, v1, v2)
		return false
	} else {
		t.Logf("%v OK: [%v]", name, v1)
	}
	return true
}

func AssertStringArrayEqual(t *testing.T, name string, v1 []string, v2 []string) bool {
	if len(v1) != len(v2) {
		t.Errorf("\x1b[1m\x1b[35m%v size mismatch. Expecting [%v], got [%v]\x1b[0m", name, len(v1), len(v2))
		return false
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Errorf("\x1b[1m\x1b[35m%v[%v] mismatch. Expecting [%v], got [%v]\x1b[0m", name, i, v1[i], v2[i])
			return false
		}
	}
	t.Logf("%v OK: [%v]", name, v1)
	return true
}
