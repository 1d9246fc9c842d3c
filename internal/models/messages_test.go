package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	change := uint32(150000)
	cases := []struct {
		name string
		raw  string
		want Inbound
	}{
		{
			name: "measurement",
			raw:  `{"type":"measurement","max_light_level":1000,"light_levels":[[0,10],[150000,900]],"followup_hid_us":null,"change_us":150000}`,
			want: &Measurement{MaxLightLevel: 1000, LightLevels: [][2]uint32{{0, 10}, {150000, 900}}, ChangeUS: &change},
		},
		{
			name: "measurement without change",
			raw:  `{"type":"measurement","max_light_level":1000,"light_levels":[],"followup_hid_us":null,"change_us":null}`,
			want: &Measurement{MaxLightLevel: 1000, LightLevels: [][2]uint32{}},
		},
		{
			name: "background",
			raw:  `{"type":"background_light_level","avg":0.42}`,
			want: &BackgroundLightLevel{Avg: 0.42},
		},
		{
			name: "status",
			raw:  `{"type":"status","version":{"hardware":1,"firmware":65536},"max_light_level":4095}`,
			want: &DeviceStatus{Version: Version{Hardware: 1, Firmware: 65536}, MaxLightLevel: 4095},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tc.raw))
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("decoded message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeInbound_Errors(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":"firmware_update"}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = DecodeInbound([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeInbound([]byte(`{"type":"measurement","light_levels":"many"}`))
	assert.Error(t, err)
}
