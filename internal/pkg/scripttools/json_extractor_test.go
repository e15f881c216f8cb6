package scripttools

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractJSONArray(t *testing.T) {
	Convey("ExtractJSONArray 从模型响应中提取数组", t, func() {
		Convey("代码块内的数组优先", func() {
			response := "결과입니다:\n```json\n[{\"a\":1}]\n```\n이상입니다."
			result, ok := ExtractJSONArray(response)

			So(ok, ShouldBeTrue)
			So(result, ShouldEqual, `[{"a":1}]`)
		})

		Convey("没有语言标注的代码块也能提取", func() {
			response := "```\n[{\"name\":\"민수\"}]\n```"
			result, ok := ExtractJSONArray(response)

			So(ok, ShouldBeTrue)
			So(result, ShouldEqual, `[{"name":"민수"}]`)
		})

		Convey("裸露的数组片段", func() {
			response := `설명 텍스트 [{"a":1},{"b":2}] 뒤쪽 텍스트`
			result, ok := ExtractJSONArray(response)

			So(ok, ShouldBeTrue)

			var parsed []map[string]int
			So(json.Unmarshal([]byte(result), &parsed), ShouldBeNil)
			So(len(parsed), ShouldEqual, 2)
		})

		Convey("嵌套数组不会在内层括号提前截断", func() {
			response := `[{"casting":["민수","지영"]}]`
			result, ok := ExtractJSONArray(response)

			So(ok, ShouldBeTrue)

			var parsed []map[string][]string
			So(json.Unmarshal([]byte(result), &parsed), ShouldBeNil)
			So(parsed[0]["casting"], ShouldResemble, []string{"민수", "지영"})
		})

		Convey("散落的对象被拼成数组", func() {
			response := "첫번째: {\"a\":1}\n두번째: {\"b\":2}"
			result, ok := ExtractJSONArray(response)

			So(ok, ShouldBeTrue)

			var parsed []map[string]int
			So(json.Unmarshal([]byte(result), &parsed), ShouldBeNil)
			So(len(parsed), ShouldEqual, 2)
			So(parsed[0]["a"], ShouldEqual, 1)
			So(parsed[1]["b"], ShouldEqual, 2)
		})

		Convey("完全没有 JSON 时返回 false", func() {
			_, ok := ExtractJSONArray("죄송합니다. 분석할 수 없습니다.")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestExtractJSONObject(t *testing.T) {
	Convey("ExtractJSONObject 从模型响应中提取单个对象", t, func() {
		Convey("代码块内的对象优先", func() {
			response := "```json\n{\"style\":\"시네마틱\"}\n```"
			result, ok := ExtractJSONObject(response)

			So(ok, ShouldBeTrue)
			So(result, ShouldEqual, `{"style":"시네마틱"}`)
		})

		Convey("裸露的对象片段", func() {
			response := `프롬프트: {"characters":"20대 남성","background":"편의점"} 입니다`
			result, ok := ExtractJSONObject(response)

			So(ok, ShouldBeTrue)

			var parsed map[string]string
			So(json.Unmarshal([]byte(result), &parsed), ShouldBeNil)
			So(parsed["background"], ShouldEqual, "편의점")
		})

		Convey("字符串值里的花括号不影响配平", func() {
			response := `{"background":"간판에 {열림} 표시가 있는 가게"}`
			result, ok := ExtractJSONObject(response)

			So(ok, ShouldBeTrue)

			var parsed map[string]string
			So(json.Unmarshal([]byte(result), &parsed), ShouldBeNil)
			So(parsed["background"], ShouldContainSubstring, "{열림}")
		})

		Convey("没有对象时返回 false", func() {
			_, ok := ExtractJSONObject("대답할 수 없습니다.")
			So(ok, ShouldBeFalse)
		})
	})
}
