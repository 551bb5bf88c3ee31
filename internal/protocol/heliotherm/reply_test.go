package heliotherm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValueKey(t *testing.T) {
	tests := []struct {
		in      string
		want    ValueKey
		wantErr bool
	}{
		{in: "M0", want: ValueKey{Kind: KindMeasured, ID: 0}},
		{in: "S223", want: ValueKey{Kind: KindSetting, ID: 223}},
		{in: "M", wantErr: true},
		{in: "X1", wantErr: true},
		{in: "M-1", wantErr: true},
		{in: "Mabc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValueKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestCommands(t *testing.T) {
	assert.Equal(t, "MP,NR=0;", string(NamedQuery(ValueKey{Kind: KindMeasured, ID: 0})))
	assert.Equal(t, "SP,NR=223;", string(NamedQuery(ValueKey{Kind: KindSetting, ID: 223})))
	assert.Equal(t, "MR,0;", string(BatchQuery([]int{0})))
	assert.Equal(t, "MR,0,2,3;", string(BatchQuery([]int{0, 2, 3})))
}

func TestParseNamedReply(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    NamedValue
		err     error
	}{
		{
			name:    "测量值",
			payload: "MP,NR=0,ID=0,NAME=Temp. Aussen,LEN=4,TP=0,BI=0,VAL=4.8,MIN=-500,MAX=500;",
			want:    NamedValue{NR: 0, Name: "Temp. Aussen", Value: 4.8},
		},
		{
			name:    "字段间夹杂省略片段",
			payload: "MP,NR=0,ID=0,NAME=Temp. Aussen,LEN=4,...,VAL=4.8,...;",
			want:    NamedValue{NR: 0, Name: "Temp. Aussen", Value: 4.8},
		},
		{
			name:    "VAL后跟位置参数",
			payload: "MP,NR=2,NAME=Temp. Vorlauf,VAL=30.1,0;",
			want:    NamedValue{NR: 2, Name: "Temp. Vorlauf", Value: 30.1},
		},
		{
			name:    "参数",
			payload: "SP,NR=223,ID=223,NAME=WW Normaltemp.,LEN=4,VAL=50.0;",
			want:    NamedValue{NR: 223, Name: "WW Normaltemp.", Value: 50},
		},
		{
			name:    "名称含标点与逗号",
			payload: "MP,NR=16,NAME=Leistung (kW/h), gesamt %,VAL=-1.5;",
			want:    NamedValue{NR: 16, Name: "Leistung (kW/h), gesamt %", Value: -1.5},
		},
		{
			name:    "NR为浮点",
			payload: "MP,NR=16.0,NAME=x,VAL=1;",
			want:    NamedValue{NR: 16, Name: "x", Value: 1},
		},
		{name: "设备错误", payload: "ERR,5;", err: ErrDeviceError},
		{name: "缺少VAL", payload: "MP,NR=0,NAME=x;", err: ErrReplyMalformed},
		{name: "缺少NAME", payload: "MP,NR=0,VAL=1;", err: ErrReplyMalformed},
		{name: "缺少NR", payload: "MP,NAME=x,VAL=1;", err: ErrReplyMalformed},
		{name: "VAL非数字", payload: "MP,NR=0,NAME=x,VAL=abc;", err: ErrReplyMalformed},
		{name: "空载荷", payload: "", err: ErrReplyMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNamedReply([]byte(tt.payload))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBatchReply(t *testing.T) {
	got, err := ParseBatchReply([]byte("MA,0,5.1,0;"))
	require.NoError(t, err)
	assert.Equal(t, BatchValue{ID: 0, Value: 5.1}, got)

	got, err = ParseBatchReply([]byte("MA,69,-12.25,whatever;"))
	require.NoError(t, err)
	assert.Equal(t, BatchValue{ID: 69, Value: -12.25}, got)

	_, err = ParseBatchReply([]byte("ERR,5;"))
	assert.ErrorIs(t, err, ErrDeviceError)

	for _, bad := range []string{"MA,0;", "MP,0,1,0;", "MA,x,1,0;", "MA,0,y,0;"} {
		_, err = ParseBatchReply([]byte(bad))
		assert.ErrorIs(t, err, ErrReplyMalformed, bad)
	}
}

func TestParseReply(t *testing.T) {
	r := ParseReply([]byte("MP,NR=1,NAME=a,b,VAL=2;"))
	assert.Equal(t, "MP", r.Type)
	assert.Equal(t, "a,b", r.Fields["NAME"])
	assert.Equal(t, "2", r.Fields["VAL"])
	assert.Empty(t, r.Args)

	r = ParseReply([]byte("MP,NR=0,NAME=x,LEN=4,...,VAL=4.8,0;"))
	assert.Equal(t, "4", r.Fields["LEN"])
	assert.Equal(t, "4.8", r.Fields["VAL"])
	assert.Equal(t, []string{"...", "0"}, r.Args)
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "Temp. Aussen", DecodeText([]byte("Temp. Aussen")))
	assert.Equal(t, "Kältekreis", DecodeText([]byte("Kältekreis")))
	assert.Equal(t, "Kältekreis", DecodeText([]byte{'K', 0xE4, 'l', 't', 'e', 'k', 'r', 'e', 'i', 's'}))

	nv, err := ParseNamedReply([]byte{'M', 'P', ',', 'N', 'R', '=', '5', ',', 'N', 'A', 'M', 'E', '=', 'W', 0xE4, 'r', 'm', 'e', ',', 'V', 'A', 'L', '=', '1', ';'})
	require.NoError(t, err)
	assert.Equal(t, "Wärme", nv.Name)
}
