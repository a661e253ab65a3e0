package verify

import (
	"testing"

	cfgdomain "cyberchecker/internal/services/configs/domain"
)

func cond(typ, value, path string) cfgdomain.Condition {
	return cfgdomain.Condition{Type: typ, Value: value, Path: path}
}

func TestEvaluateAllMustMatch(t *testing.T) {
	t.Parallel()

	conds := []cfgdomain.Condition{
		cond("contains", "ok", ""),
		cond("status_code", "200", ""),
	}
	if !evaluate(conds, 200, "all ok here", nil) {
		t.Fatal("both conditions match, want true")
	}
	if evaluate(conds, 500, "all ok here", nil) {
		t.Fatal("status mismatch, want false")
	}
}

func TestEvaluateEmptyListNeverMatches(t *testing.T) {
	t.Parallel()

	if evaluate(nil, 200, "anything", nil) {
		t.Fatal("empty condition list must not match")
	}
}

func TestNotContains(t *testing.T) {
	t.Parallel()

	conds := []cfgdomain.Condition{cond("not_contains", "error", "")}
	if !evaluate(conds, 200, "all fine", nil) {
		t.Fatal("want true when needle absent")
	}
	if evaluate(conds, 200, "an error happened", nil) {
		t.Fatal("want false when needle present")
	}
}

func TestStatusCodeNonNumericValue(t *testing.T) {
	t.Parallel()

	if evaluate([]cfgdomain.Condition{cond("status_code", "teapot", "")}, 418, "", nil) {
		t.Fatal("non-numeric status value must fail the condition")
	}
}

func TestJSONContainsDotPath(t *testing.T) {
	t.Parallel()

	doc := decodeJSON(`{"user":{"plan":"premium plus","logins":17}}`)

	if !evaluate([]cfgdomain.Condition{cond("json_contains", "premium", "user.plan")}, 200, "", doc) {
		t.Fatal("string leaf should match by substring")
	}
	if !evaluate([]cfgdomain.Condition{cond("json_contains", "17", "user.logins")}, 200, "", doc) {
		t.Fatal("non-string leaf should match via its printed form")
	}
	if evaluate([]cfgdomain.Condition{cond("json_contains", "premium", "user.missing")}, 200, "", doc) {
		t.Fatal("missing path must fail")
	}
}

func TestJSONContainsUnparsableBody(t *testing.T) {
	t.Parallel()

	doc := decodeJSON("<html>not json</html>")
	if evaluate([]cfgdomain.Condition{cond("json_contains", "x", "a.b")}, 200, "", doc) {
		t.Fatal("unparsable body must fail json_contains")
	}
}

func TestUnknownConditionTypeFails(t *testing.T) {
	t.Parallel()

	if evaluate([]cfgdomain.Condition{cond("regex", "x", "")}, 200, "x", nil) {
		t.Fatal("unknown condition type must fail")
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	if got, ok := extract(`pre token=" abc " post token="zzz"`, `token="`, `"`); !ok || got != "abc" {
		t.Fatalf("extract = %q, %v, want first trimmed match", got, ok)
	}
	if _, ok := extract("no delimiters here", "<", ">"); ok {
		t.Fatal("want no match")
	}
	if _, ok := extract("", "a", "b"); ok {
		t.Fatal("empty text must not match")
	}
}

func TestSubstitute(t *testing.T) {
	t.Parallel()

	captured := map[string]string{"Sid": "42"}
	got := substitute("u={USERNAME}&p={PASSWORD}&a={SID}&b={sid}&c={Sid}", "alice", "pw", captured)
	want := "u=alice&p=pw&a=42&b=42&c=42"
	if got != want {
		t.Fatalf("substitute = %q, want %q", got, want)
	}
}
