package novel

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"yuja/internal/model/novel"
	"yuja/internal/pkg/id"
	"yuja/internal/pkg/storage"
)

func TestMain(m *testing.M) {
	// 逐项间隔在测试里调小，避免批量阶段的真实等待
	interItemDelay = time.Millisecond
	os.Exit(m.Run())
}

func TestNovelService_CreateAndPreprocess(t *testing.T) {
	Convey("小说创建与剧本预处理", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		Convey("标题或剧本为空时拒绝", func() {
			_, err := env.svc.CreateNovel(ctx, "", "", "대본")
			So(err, ShouldEqual, ErrEmptyTitle)

			_, err = env.svc.CreateNovel(ctx, "제목", "", "")
			So(err, ShouldEqual, ErrEmptyScript)
		})

		Convey("预处理按顺序执行并持久化", func() {
			n, err := env.svc.CreateNovel(ctx, "테스트", "", "민수   :   안녕\n\n\n\n끝")
			So(err, ShouldBeNil)

			result, err := env.svc.PreprocessScript(ctx, n.ID, []string{OpWhitespace, OpDialogue})
			So(err, ShouldBeNil)
			So(result, ShouldEqual, "민수: 안녕\n\n끝")

			stored, err := env.svc.GetNovel(ctx, n.ID)
			So(err, ShouldBeNil)
			So(stored.Script, ShouldEqual, result)
		})

		Convey("未知操作名整体拒绝，不做部分应用", func() {
			n, err := env.svc.CreateNovel(ctx, "테스트", "", "원본   대본")
			So(err, ShouldBeNil)

			_, err = env.svc.PreprocessScript(ctx, n.ID, []string{OpWhitespace, "no_such_op"})
			So(err, ShouldNotBeNil)

			stored, err := env.svc.GetNovel(ctx, n.ID)
			So(err, ShouldBeNil)
			So(stored.Script, ShouldEqual, "원본   대본")
		})
	})
}

func TestNovelService_SplitChapters(t *testing.T) {
	Convey("章节切分整体重建", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		n, err := env.svc.CreateNovel(ctx, "테스트", "", "#1장 시작\nA\n\n#2장 전개\nB")
		So(err, ShouldBeNil)

		chapters, err := env.svc.SplitChapters(ctx, n.ID)
		So(err, ShouldBeNil)
		So(len(chapters), ShouldEqual, 2)
		So(chapters[0].Title, ShouldEqual, "시작")
		So(chapters[1].Content, ShouldEqual, "B")

		Convey("再次切分不产生重复章节", func() {
			again, err := env.svc.SplitChapters(ctx, n.ID)
			So(err, ShouldBeNil)
			So(len(again), ShouldEqual, 2)

			stored, err := env.svc.GetChapters(ctx, n.ID)
			So(err, ShouldBeNil)
			So(len(stored), ShouldEqual, 2)
		})

		Convey("没有标记行时返回空且旧章节保留", func() {
			m, err := env.svc.CreateNovel(ctx, "마커없음", "", "그냥 본문")
			So(err, ShouldBeNil)

			result, err := env.svc.SplitChapters(ctx, m.ID)
			So(err, ShouldBeNil)
			So(result, ShouldBeNil)
		})
	})
}

func TestNovelService_ExtractCharacters(t *testing.T) {
	Convey("角色提取", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		n, err := env.svc.CreateNovel(ctx, "테스트", "", "민수와 지영의 이야기")
		So(err, ShouldBeNil)

		Convey("正常提取并入库", func() {
			env.completer.responses = []string{
				"```json\n[{\"name\":\"민수\",\"description\":\"20대 남자\"},{\"name\":\"지영\",\"description\":\"20대 여자\"}]\n```",
			}

			characters, err := env.svc.ExtractCharacters(ctx, n.ID)
			So(err, ShouldBeNil)
			So(len(characters), ShouldEqual, 2)
			So(characters[0].Name, ShouldEqual, "민수")
			So(characters[0].ReferenceImageURL, ShouldEqual, "")
		})

		Convey("再次提取是合并不替换", func() {
			env.completer.responses = []string{
				`[{"name":"민수","description":"첫번째"}]`,
				`[{"name":"민수","description":"두번째"}]`,
			}

			_, err := env.svc.ExtractCharacters(ctx, n.ID)
			So(err, ShouldBeNil)
			_, err = env.svc.ExtractCharacters(ctx, n.ID)
			So(err, ShouldBeNil)

			all, err := env.svc.GetCharacters(ctx, n.ID)
			So(err, ShouldBeNil)
			// 同名角色不去重，两条都保留
			So(len(all), ShouldEqual, 2)
		})

		Convey("模型无响应时返回空结果而不是错误", func() {
			env.completer.err = errors.New("503 service unavailable")

			characters, err := env.svc.ExtractCharacters(ctx, n.ID)
			So(err, ShouldBeNil)
			So(characters, ShouldBeNil)
		})

		Convey("响应不是 JSON 时同样返回空结果", func() {
			env.completer.responses = []string{"죄송합니다, 분석에 실패했습니다."}

			characters, err := env.svc.ExtractCharacters(ctx, n.ID)
			So(err, ShouldBeNil)
			So(characters, ShouldBeNil)
		})
	})
}

func TestNovelService_SplitScenes(t *testing.T) {
	Convey("场景切分", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		n, err := env.svc.CreateNovel(ctx, "테스트", "", "#1장 시작\n민수: 안녕\n\n#2장 전개\n지영: 반가워")
		So(err, ShouldBeNil)

		// 角色是匹配的前提
		env.chars.Create(ctx, &novel.Character{ID: "c-minsu", NovelID: n.ID, Name: "민수"})
		env.chars.Create(ctx, &novel.Character{ID: "c-jiyoung", NovelID: n.ID, Name: "지영"})

		sceneJSON := `[{"title":"대화","narration":"거리","dialogue":"민수: 안녕","casting":["민수"],"storyboard":"","mise_en_scene":""}]`

		Convey("整本切分产出孤儿场景并匹配出场角色", func() {
			env.completer.responses = []string{sceneJSON}

			scenes, err := env.svc.SplitScenes(ctx, n.ID, false)
			So(err, ShouldBeNil)
			So(len(scenes), ShouldEqual, 1)
			So(scenes[0].ChapterID, ShouldEqual, "")
			So(scenes[0].Casting, ShouldResemble, []string{"c-minsu"})
		})

		Convey("casting 为字符串时也能整理匹配", func() {
			env.completer.responses = []string{
				`[{"title":"대화","narration":"","dialogue":"","casting":"민수, 지영","storyboard":"","mise_en_scene":""}]`,
			}

			scenes, err := env.svc.SplitScenes(ctx, n.ID, false)
			So(err, ShouldBeNil)
			So(len(scenes), ShouldEqual, 1)
			So(scenes[0].Casting, ShouldResemble, []string{"c-minsu", "c-jiyoung"})
		})

		Convey("按章节切分时已有场景的章节跳过", func() {
			chapters, err := env.svc.SplitChapters(ctx, n.ID)
			So(err, ShouldBeNil)
			So(len(chapters), ShouldEqual, 2)

			// 第1章已经有场景
			env.scenes.Create(ctx, &novel.Scene{
				ID: id.New(), NovelID: n.ID, ChapterID: chapters[0].ID, Title: "기존 장면",
			})

			env.completer.responses = []string{sceneJSON}

			scenes, err := env.svc.SplitScenes(ctx, n.ID, true)
			So(err, ShouldBeNil)
			// 只有第2章被切分，一次补全调用
			So(len(scenes), ShouldEqual, 1)
			So(scenes[0].ChapterID, ShouldEqual, chapters[1].ID)
			So(env.completer.calls, ShouldEqual, 1)
		})

		Convey("按章节切分但没有章节时报错", func() {
			m, err := env.svc.CreateNovel(ctx, "장없음", "", "본문")
			So(err, ShouldBeNil)

			_, err = env.svc.SplitScenes(ctx, m.ID, true)
			So(errors.Is(err, ErrNoChapters), ShouldBeTrue)
		})
	})
}

func TestNovelService_ScenePrompt(t *testing.T) {
	Convey("场景结构化提示词", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		n, err := env.svc.CreateNovel(ctx, "테스트", "", "대본")
		So(err, ShouldBeNil)

		scene := &novel.Scene{
			ID:        id.New(),
			NovelID:   n.ID,
			Title:     "편의점",
			Narration: "늦은 밤 편의점",
			Dialogue:  "민수: 어서오세요",
		}
		So(env.scenes.Create(ctx, scene), ShouldBeNil)

		Convey("正常生成六组件并持久化", func() {
			env.completer.responses = []string{
				`{"characters":"20대 남성","background":"편의점","angle_and_composition":"미디엄 샷","lighting_and_color":"형광등","mood_and_atmosphere":"정적","style":"시네마틱"}`,
			}

			prompt, generated, err := env.svc.GetOrGenerateScenePrompt(ctx, n.ID, scene.ID, false)
			So(err, ShouldBeNil)
			So(generated, ShouldBeTrue)
			So(prompt[novel.PromptKeyBackground], ShouldEqual, "편의점")

			Convey("第二次请求直接复用，不再调用模型", func() {
				callsBefore := env.completer.calls

				again, generated, err := env.svc.GetOrGenerateScenePrompt(ctx, n.ID, scene.ID, false)
				So(err, ShouldBeNil)
				So(generated, ShouldBeFalse)
				So(again, ShouldResemble, prompt)
				So(env.completer.calls, ShouldEqual, callsBefore)
			})

			Convey("refresh=true 强制重新生成", func() {
				env.completer.responses = []string{
					`{"characters":"다른 묘사","background":"새 배경","angle_and_composition":"롱 샷","lighting_and_color":"자연광","mood_and_atmosphere":"활기","style":"수채화"}`,
				}

				refreshed, generated, err := env.svc.GetOrGenerateScenePrompt(ctx, n.ID, scene.ID, true)
				So(err, ShouldBeNil)
				So(generated, ShouldBeTrue)
				So(refreshed[novel.PromptKeyBackground], ShouldEqual, "새 배경")
			})
		})

		Convey("场景不属于该小说时拒绝", func() {
			other, err := env.svc.CreateNovel(ctx, "다른 소설", "", "대본")
			So(err, ShouldBeNil)

			_, _, err = env.svc.GetOrGenerateScenePrompt(ctx, other.ID, scene.ID, false)
			So(err, ShouldNotBeNil)
			So(env.completer.calls, ShouldEqual, 0)
		})

		Convey("模型失败时兜底模板六个 key 齐全", func() {
			env.completer.err = errors.New("429 too many requests")

			prompt, generated, err := env.svc.GetOrGenerateScenePrompt(ctx, n.ID, scene.ID, false)
			So(err, ShouldBeNil)
			So(generated, ShouldBeTrue)
			So(len(prompt), ShouldEqual, len(novel.PromptComponentKeys))
			for _, key := range novel.PromptComponentKeys {
				So(prompt[key], ShouldNotBeEmpty)
			}
			So(prompt[novel.PromptKeyBackground], ShouldEqual, "늦은 밤 편의점")
		})
	})
}

func TestNovelService_GenerateSceneImages_Resumability(t *testing.T) {
	Convey("场景插图阶段的断点续跑", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		n, err := env.svc.CreateNovel(ctx, "테스트", "", "대본")
		So(err, ShouldBeNil)

		// 5个场景，其中2个已有插图；提示词都已持久化，避免补全调用
		donePrompt := map[string]string{
			novel.PromptKeyCharacters:  "인물",
			novel.PromptKeyBackground:  "배경",
			novel.PromptKeyComposition: "미디엄 샷",
			novel.PromptKeyLighting:    "자연광",
			novel.PromptKeyMood:        "분위기",
			novel.PromptKeyStyle:       "시네마틱",
		}
		for i := 0; i < 5; i++ {
			sc := &novel.Scene{
				ID:          id.New(),
				NovelID:     n.ID,
				Title:       "장면",
				ImagePrompt: donePrompt,
			}
			if i < 2 {
				sc.ImageURL = "already/done.jpg"
			}
			So(env.scenes.Create(ctx, sc), ShouldBeNil)
		}

		generated, err := env.svc.GenerateSceneImages(ctx, n.ID)
		So(err, ShouldBeNil)

		// 只有缺图的3个被尝试
		So(len(generated), ShouldEqual, 3)
		So(env.imageGen.calls, ShouldEqual, 3)

		scenes, err := env.svc.GetScenes(ctx, n.ID)
		So(err, ShouldBeNil)
		for _, sc := range scenes {
			So(sc.ImageURL, ShouldNotBeEmpty)
		}
	})
}

func TestNovelService_GenerateCharacterImages(t *testing.T) {
	Convey("角色参考图阶段", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		n, err := env.svc.CreateNovel(ctx, "테스트", "", "대본")
		So(err, ShouldBeNil)

		env.chars.Create(ctx, &novel.Character{ID: "c-1", NovelID: n.ID, Name: "민수", Description: "20대 남자"})
		env.chars.Create(ctx, &novel.Character{ID: "c-2", NovelID: n.ID, Name: "지영", ReferenceImageURL: "done.jpg"})

		generated, err := env.svc.GenerateCharacterImages(ctx, n.ID)
		So(err, ShouldBeNil)

		// 已有参考图的跳过
		So(len(generated), ShouldEqual, 1)
		So(env.imageGen.calls, ShouldEqual, 1)

		c, err := env.chars.FindByID(ctx, "c-1")
		So(err, ShouldBeNil)
		So(c.ReferenceImageURL, ShouldNotBeEmpty)

		Convey("生成失败只跳过该角色", func() {
			env.chars.Create(ctx, &novel.Character{ID: "c-3", NovelID: n.ID, Name: "서준"})
			env.imageGen.err = errors.New("500 internal server error")

			generated, err := env.svc.GenerateCharacterImages(ctx, n.ID)
			So(err, ShouldBeNil)
			So(generated, ShouldBeEmpty)

			c, err := env.chars.FindByID(ctx, "c-3")
			So(err, ShouldBeNil)
			So(c.ReferenceImageURL, ShouldEqual, "")
		})
	})
}

func TestNovelService_DeleteCharacter(t *testing.T) {
	Convey("删除角色的级联", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		n, err := env.svc.CreateNovel(ctx, "테스트", "", "대본")
		So(err, ShouldBeNil)

		env.chars.Create(ctx, &novel.Character{ID: "c-1", NovelID: n.ID, Name: "민수"})
		env.scenes.Create(ctx, &novel.Scene{
			ID: "s-1", NovelID: n.ID, Title: "장면", Casting: []string{"c-1", "c-2"},
		})

		So(env.svc.DeleteCharacter(ctx, n.ID, "c-1"), ShouldBeNil)

		_, err = env.chars.FindByID(ctx, "c-1")
		So(err, ShouldNotBeNil)

		sc, err := env.scenes.FindByID(ctx, "s-1")
		So(err, ShouldBeNil)
		So(sc.Casting, ShouldResemble, []string{"c-2"})
	})
}

func TestNovelService_DeleteNovel(t *testing.T) {
	Convey("删除小说的级联", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		n, err := env.svc.CreateNovel(ctx, "테스트", "", "대본")
		So(err, ShouldBeNil)

		env.chapters.Create(ctx, &novel.Chapter{ID: "ch-1", NovelID: n.ID, ChapterNumber: 1, Title: "1장"})
		env.chars.Create(ctx, &novel.Character{ID: "c-1", NovelID: n.ID, Name: "민수"})
		env.scenes.Create(ctx, &novel.Scene{ID: "s-1", NovelID: n.ID, Title: "장면"})

		charKey, err := env.store.Save(ctx, storage.ImageKey(n.ID, storage.OwnerCharacter, "c-1"), []byte("img"), "image/jpeg")
		So(err, ShouldBeNil)
		sceneKey, err := env.store.Save(ctx, storage.ImageKey(n.ID, storage.OwnerScene, "s-1"), []byte("img"), "image/jpeg")
		So(err, ShouldBeNil)

		So(env.svc.DeleteNovel(ctx, n.ID), ShouldBeNil)

		_, err = env.svc.GetNovel(ctx, n.ID)
		So(err, ShouldNotBeNil)

		chapters, err := env.chapters.FindByNovelID(ctx, n.ID)
		So(err, ShouldBeNil)
		So(chapters, ShouldBeEmpty)

		chars, err := env.chars.FindByNovelID(ctx, n.ID)
		So(err, ShouldBeNil)
		So(chars, ShouldBeEmpty)

		scenes, err := env.scenes.FindByNovelID(ctx, n.ID)
		So(err, ShouldBeNil)
		So(scenes, ShouldBeEmpty)

		// 小说前缀下的图片随删除一并清掉
		for _, key := range []string{charKey, sceneKey} {
			exists, err := env.store.Exists(ctx, key)
			So(err, ShouldBeNil)
			So(exists, ShouldBeFalse)
		}
	})
}

func TestNovelService_RunAutomation(t *testing.T) {
	Convey("全流程自动化", t, func() {
		env := newTestEnv()
		ctx := context.Background()

		script := "#1장 시작\n민수: 안녕하세요\n\n#2장 전개\n민수: 다시 만났네요"
		n, err := env.svc.CreateNovel(ctx, "자동화", "", script)
		So(err, ShouldBeNil)

		_, err = env.svc.SplitChapters(ctx, n.ID)
		So(err, ShouldBeNil)

		Convey("两章剧本从零跑完四个阶段", func() {
			env.completer.responses = []string{
				// 角色提取
				`[{"name":"민수","description":"20대 남자"}]`,
				// 第1장场景切分
				`[{"title":"인사","narration":"아침 거리","dialogue":"민수: 안녕하세요","casting":["민수"],"storyboard":"","mise_en_scene":""}]`,
				// 第2장场景切分
				`[{"title":"재회","narration":"저녁 거리","dialogue":"민수: 다시 만났네요","casting":["민수"],"storyboard":"","mise_en_scene":""}]`,
				// 两个场景各一次结构化提示词
				`{"characters":"민수","background":"아침 거리","angle_and_composition":"미디엄 샷","lighting_and_color":"아침 햇살","mood_and_atmosphere":"상쾌함","style":"시네마틱"}`,
				`{"characters":"민수","background":"저녁 거리","angle_and_composition":"미디엄 샷","lighting_and_color":"노을","mood_and_atmosphere":"아련함","style":"시네마틱"}`,
			}

			report, err := env.svc.RunAutomation(ctx, n.ID)
			So(err, ShouldBeNil)

			So(report.CharactersExtracted, ShouldEqual, 1)
			So(report.CharacterImages, ShouldEqual, 1)
			So(report.ScenesCreated, ShouldEqual, 2)
			So(report.SceneImages, ShouldEqual, 2)
			So(report.SkippedStages, ShouldBeEmpty)

			// 场景插图都已持久化
			scenes, err := env.svc.GetScenes(ctx, n.ID)
			So(err, ShouldBeNil)
			So(len(scenes), ShouldEqual, 2)
			for _, sc := range scenes {
				So(sc.HasImage(), ShouldBeTrue)
				So(sc.Casting, ShouldNotBeEmpty)
			}

			Convey("重复执行阶段级幂等", func() {
				report, err := env.svc.RunAutomation(ctx, n.ID)
				So(err, ShouldBeNil)

				So(report.CharactersExtracted, ShouldEqual, 0)
				So(report.CharacterImages, ShouldEqual, 0)
				So(report.ScenesCreated, ShouldEqual, 0)
				So(report.SceneImages, ShouldEqual, 0)
				So(report.SkippedStages, ShouldContain, "extract_characters")
				So(report.SkippedStages, ShouldContain, "split_scenes")
			})
		})

		Convey("提取失败时流水线停在无角色状态", func() {
			env.completer.err = errors.New("503 service unavailable")

			report, err := env.svc.RunAutomation(ctx, n.ID)
			So(err, ShouldBeNil)

			So(report.CharactersExtracted, ShouldEqual, 0)
			So(report.Warnings, ShouldContain, "character extraction produced no characters")
			So(report.CharacterImages, ShouldEqual, 0)
		})
	})
}
