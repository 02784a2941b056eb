package writer

import (
	"fmt"
	"strings"

	"github.com/ekarat/bookwright/pkg/types"
)

// SystemPrompt is the editor persona sent with every generation
// request. It steers the model away from screenplay formatting toward
// continuous novel prose.
const SystemPrompt = `Sen deneyimli bir Türkçe editör ve ROMAN yazım asistanısın. Senaryo/sahne formatından özellikle kaçın. "Sahne" veya "Scene" gibi başlıklar ve numaralı sahne alt başlıkları kullanma. Bölümler tek parça, akıcı, romansı anlatımla yazılır; gerektiğinde doğal paragraflar ve diyaloglarla akış sağlanır.`

// outlinePrompt asks for a chapter plan as a bare JSON array.
func outlinePrompt(plan types.Plan) string {
	mode := plan.OutlineMode
	if mode == "" {
		mode = types.OutlineChronological
	}
	return fmt.Sprintf(`Aşağıdaki bilgilere göre %s bir bölüm planı üret. Sadece JSON dizi ver: [{"title":"...","summary":"..."}].

Başlık: %s
Konu: %s
Ana fikir: %s
Temalar: %s
Mesaj: %s`, mode, plan.Title, plan.Topic, plan.MainIdea, plan.Themes, plan.Message)
}

// chapterPrompt asks for the draft of the chapter at index, grounded on
// the assembled context.
func chapterPrompt(index int, item types.OutlineItem, context string) string {
	title := item.Title
	if title == "" {
		title = fmt.Sprintf("Bölüm %d", index)
	}
	return fmt.Sprintf(`Bağlamı dikkate alarak %d. bölüm taslağını ROMAN biçeminde yaz. Senaryo/sahne formatı kullanma; 'Sahne' ya da numaralı alt başlıklar ekleme. Başlangıçtan sona tek parça, akıcı bir anlatı olsun. Bölüm başlığı: %s. Bölüm özeti: %s.

BAĞLAM
%s`, index, title, item.Summary, context)
}

// worldPrompt asks for characters, locations, and world rules as a
// single JSON object.
func worldPrompt(plan types.Plan) string {
	outline := make([]string, 0, len(plan.Outline))
	for i, o := range plan.Outline {
		outline = append(outline, fmt.Sprintf("%d. %s — %s", i+1, o.Title, o.Summary))
	}
	return fmt.Sprintf(`Aşağıdaki plan ve temalara göre kısa bir karakter listesi (5-8 kişi) ve dünya bilgisi üret. Sadece JSON ver:
{"characters":[{"name":"...","age":"...","personality":"...","backstory":"...","motivation":"...","relationships":["..."],"voice":"..."}],"locations":[{"name":"...","detail":"..."}],"rules":["..."]}.

Başlık: %s
Temalar: %s
Outline:
%s`, plan.Title, plan.Themes, strings.Join(outline, "\n"))
}

// glossaryPrompt asks for a term glossary over the given context.
func glossaryPrompt(context string) string {
	return fmt.Sprintf(`Aşağıdaki bağlam için terimler sözlüğü üret (8-15 madde). Sadece JSON ver: [{"term":"...","definition":"..."}]

%s`, context)
}

// quickConsistencyPrompt asks for fast consistency notes on the current
// draft against a short context.
func quickConsistencyPrompt(context, draft string) string {
	return fmt.Sprintf(`Aşağıdaki bağlam ve bölüm taslağı için hızlı tutarlılık notları ver (madde madde): isimler, olay örgüsü, motivasyonlar, zaman çizelgesi, ton.

BAĞLAM
%s

BÖLÜM TASLAĞI
%s`, context, draft)
}

// consistencyPrompt asks for a comprehensive consistency analysis over
// a wide context.
func consistencyPrompt(context string) string {
	return fmt.Sprintf(`Aşağıdaki tüm bağlamı kapsayan kapsamlı tutarlılık analizi yap ve iyileştirme önerileri ver. Bölüm isimleriyle başlıklandır.

%s`, context)
}

// revisionPrompt asks for a style and language pass over the manuscript.
func revisionPrompt(text string) string {
	return fmt.Sprintf(`Aşağıdaki metin üzerinde stil ve dil revizyonu yap: cümleleri sadeleştir, tempo akışını ayarla, tekrarları azalt; teknik terimleri tutarlı kullan. ROMAN biçemi korunmalı; varsa 'Sahne' veya sahne benzeri alt başlıkları kaldır ve doğal paragraf akışıyla sun. Metni aynı bölüm başlıklarıyla geri ver.

%s`, text)
}

// blurbPrompt asks for final review notes plus back-cover and short
// summaries as JSON.
func blurbPrompt(text string) string {
	return fmt.Sprintf(`Metin için kısa bir son okuma notu (madde listesi) ver ve ayrıca iki metin üret: 1) Arka kapak yazısı (150-200 kelime), 2) Kısa özet (2-3 cümle). JSON döndür: {"notes":["..."],"backCover":"...","short":"..."}.

%s`, text)
}

// assistantPrompt builds the prompt for the side assistant. In rewrite
// mode the reply replaces the draft wholesale; in suggest mode it is
// advisory.
func assistantPrompt(rewrite bool, instruction, draft, context string) string {
	if rewrite {
		return fmt.Sprintf(`Aşağıdaki talimata göre BÖLÜM TASLAĞINI roman biçeminde tamamen yeniden yaz ve sadece nihai metni ver. Senaryo/sahne formatı ve 'Sahne' başlıkları kullanma; doğal paragraf akışıyla yaz.
Talimat: %s

BÖLÜM TASLAĞI
%s

BAĞLAM
%s`, instruction, draft, context)
	}
	return fmt.Sprintf(`Aşağıdaki talimata göre BÖLÜM TASLAĞI için öneriler ver ve roman biçeminde kısa örnek pasajlar üret. Senaryo/sahne başlıkları verme.
Talimat: %s

BÖLÜM TASLAĞI
%s

BAĞLAM
%s`, instruction, draft, context)
}
