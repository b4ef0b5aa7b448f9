package linejson

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theory/pkg/contract"
)

var req = contract.LineRequest{Text: "%mask_0% = %mask_1%(%mask_2%);"}

func TestDecode(t *testing.T) {
	strict, err := New(nil)
	require.NoError(t, err)
	lenient, err := New(json.RawMessage(`{"lenient":true}`))
	require.NoError(t, err)

	cases := []struct {
		name    string
		dec     contract.Decoder
		raw     string
		want    string
		wantErr error
	}{
		{"严格 JSON", strict, `{"code":"%mask_0% = %mask_1%(%mask_2%)"}`, "%mask_0% = %mask_1%(%mask_2%)", nil},
		{"多行译文", strict, `{"code":"a = 1\nb = 2\n"}`, "a = 1\nb = 2", nil},
		{"允许空译文", strict, `{"code":""}`, "", nil},
		{"缺少 code 字段", strict, `{"text":"x"}`, "", contract.ErrResponseInvalid},
		{"非 JSON", strict, `x = 1`, "", contract.ErrResponseInvalid},
		{"掩码越界", strict, `{"code":"%mask_3%()"}`, "", contract.ErrResponseInvalid},
		{"宽松：代码围栏", lenient, "```json\n{\"code\":\"%mask_0%()\"}\n```", "%mask_0%()", nil},
		{"宽松：纯文本", lenient, "%mask_0% = %mask_1%(%mask_2%)", "%mask_0% = %mask_1%(%mask_2%)", nil},
		{"宽松：残缺 JSON 仍失败", lenient, `{"code":`, "", contract.ErrResponseInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.dec.Decode(context.Background(), req, contract.Raw{Text: tc.raw})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeCanceled(t *testing.T) {
	d, _ := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Decode(ctx, req, contract.Raw{Text: `{"code":"x"}`})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBadOptions(t *testing.T) {
	_, err := New(json.RawMessage(`{"lenient":"yes"}`))
	assert.Error(t, err)
}
