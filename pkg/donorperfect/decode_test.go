package donorperfect

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecode_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Result
	}{
		{
			name: "scalar id",
			body: `<?xml version="1.0" ?><result><record><field name="" id="" value="12345"/></record></result>`,
			want: ScalarResult{ID: 12345},
		},
		{
			name: "scalar on record attributes",
			body: `<result><record id="" value="77"/></result>`,
			want: ScalarResult{ID: 77},
		},
		{
			name: "rows",
			body: `<result>
				<record><field name="donor_id" id="DONOR_ID" value="1"/><field name="last_name" id="Last_Name" value="Smith"/></record>
				<record><field name="donor_id" id="DONOR_ID" value="2"/><field name="last_name" id="Last_Name" value="Jones"/></record>
			</result>`,
			want: RowsResult{Rows: []Record{
				NewRecord(Field{"donor_id", "1"}, Field{"last_name", "Smith"}),
				NewRecord(Field{"donor_id", "2"}, Field{"last_name", "Jones"}),
			}},
		},
		{
			name: "single record",
			body: `<result><record><field id="donor_id" value="9"/><field id="email" value="a@b.org"/></record></result>`,
			want: RecordResult{Record: NewRecord(Field{"donor_id", "9"}, Field{"email", "a@b.org"})},
		},
		{
			name: "single field record",
			body: `<result><record><field id="Code" value="AL"/></record></result>`,
			want: RecordResult{Record: NewRecord(Field{"code", "AL"})},
		},
		{
			name: "no records",
			body: `<result></result>`,
			want: EmptyResult{},
		},
		{
			name: "empty record",
			body: `<result><record/></result>`,
			want: EmptyResult{},
		},
		{
			name: "backtick becomes apostrophe",
			body: "<result><record><field id=\"last_name\" value=\"O`Brien\"/></record></result>",
			want: RecordResult{Record: NewRecord(Field{"last_name", "O'Brien"})},
		},
		{
			name: "broken date is blanked",
			body: "<result><record><field id='tag_date' value='DATE:<bad & \n unescaped>'/><field id='zip' value='02134'/></record></result>",
			want: RecordResult{Record: NewRecord(Field{"tag_date", ""}, Field{"zip", "02134"})},
		},
		{
			name: "flat records merge",
			body: `<result><record id="a" value="1"/><record id="b" value="2"/></result>`,
			want: RecordResult{Record: NewRecord(Field{"a", "1"}, Field{"b", "2"})},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.body))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecode_RowKeys(t *testing.T) {
	body := `<result>
		<record><field id="First_Name" value="Ann"/><field id="DONOR_ID" value="1"/></record>
		<record><field id="First_Name" value="Bob"/><field id="DONOR_ID" value="2"/></record>
	</result>`
	res, err := Decode([]byte(body))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	rows, ok := res.(RowsResult)
	if !ok {
		t.Fatalf("Decode() = %T, want RowsResult", res)
	}
	if len(rows.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(rows.Rows))
	}
	if got := rows.Rows[1].Keys(); !reflect.DeepEqual(got, []string{"first_name", "donor_id"}) {
		t.Errorf("Keys() = %v", got)
	}
	if got := rows.Rows[1].Value("first_name"); got != "Bob" {
		t.Errorf("first_name = %q", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		target  error
		message string
	}{
		{
			name:    "error element",
			body:    `<result><error>Invalid API key</error></result>`,
			target:  ErrRemote,
			message: "donorperfect: Invalid API key",
		},
		{
			name:    "false field",
			body:    `<result><field name="success" id="success" value="false" reason="Donor not found"/></result>`,
			target:  ErrRemote,
			message: "donorperfect: Donor not found",
		},
		{
			name:    "error wins over false field",
			body:    `<result><error>first</error><field id="x" value="false" reason="second"/></result>`,
			target:  ErrRemote,
			message: "donorperfect: first",
		},
		{
			name:    "shape mismatch",
			body:    `<result><record><field id="a" value="1"/></record><record id="b" value="2"/></result>`,
			target:  ErrDecode,
			message: "decode response: shape mismatch at index 1",
		},
		{
			name:    "shape mismatch after flat",
			body:    `<result><record id="a" value="1"/><record><field id="b" value="2"/></record><record id="c" value="3"/></result>`,
			target:  ErrDecode,
			message: "decode response: shape mismatch at index 1",
		},
		{
			name:   "scalar not an integer",
			body:   `<result><record><field id="" value="abc"/></record></result>`,
			target: ErrDecode,
		},
		{
			name:   "not xml",
			body:   `<html><body>Server Error`,
			target: ErrDecode,
		},
		{
			name:   "empty body",
			body:   ``,
			target: ErrDecode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			if !errors.Is(err, tt.target) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.target)
			}
			if tt.message != "" && err.Error() != tt.message {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.message)
			}
		})
	}
}

func TestDecode_RemoteMessage(t *testing.T) {
	_, err := Decode([]byte(`<result><error>Line 1: Incorrect syntax near 'FROM'.</error></result>`))
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if remote.Message != "Line 1: Incorrect syntax near 'FROM'." {
		t.Errorf("Message = %q", remote.Message)
	}
}

func TestDecode_Charset(t *testing.T) {
	body := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><result><record><field id=\"city\" value=\"Montr\xe9al\"/></record></result>"
	res, err := Decode([]byte(body))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	rec := res.(RecordResult).Record
	if got := rec.Value("city"); got != "Montréal" {
		t.Errorf("city = %q, want Montréal", got)
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	rec := NewRecord(Field{"z", "1"}, Field{"a", `say "hi"`}, Field{"z", "2"})
	got, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if want := `{"z":"2","a":"say \"hi\""}`; string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}
}
