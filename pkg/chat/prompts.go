package chat

// Prompt templates. These are tuned for short completions on HyperCLOVA X
// and are sensitive to wording; change with care.

const rewritePrompt = `[대화]
%s

[질문]
%s

**요리명 1-5단어 (조사 제거):**`

const gradePrompt = `질문: %s
문서: %s

요리명 매칭? yes/no:`

const generatePrompt = `[검색 결과]
%s

[질문]
%s

%s

# 규칙
- 출력 개수: "여러/많이/추천/N개" 없으면 1개만
- 인원수: %[4]d인분 (재료 양도 %[4]d인분 기준)
- 재료: 쉼표 나열, 줄바꿈 금지, 양 필수
- 금지어: 데코, 토핑, 적당량, 취향껏, 약간
- "제외:" 재료, 알레르기/비선호 재료 사용 금지
- 소개: 객관적 포멀 (금지: 이모티콘, ~, 알려드릴게요)
- 조리법 출력 금지

# 출력 형식 (정확히 따를 것)
**[요리명]**
⏱️ XX분 | 📊 난이도 | 👥 %[4]d인분
**소개:** 객관적 1줄
**재료:** 재료1 양, 재료2 양 (한 줄, 쉼표 구분)

# 예시
**[딸기 케이크]**
⏱️ 30분 | 📊 초급 | 👥 %[4]d인분
**소개:** 딸기와 생크림을 활용한 디저트 케이크.
**재료:** 딸기 300g, 생크림 200ml, 설탕 50g

답변:`

const constraintAlternativePrompt = `%s

그래도 레시피를 원하시나요?
아니면 비슷한 다른 재료로 대체할까요?

답변:`

const cookingQuestionPrompt = `# 요리 전문가 답변
맥락: %s
질문: %s

# 규칙
- 2-3문장, 간결 명확
- 구체적 팁/대안 제시
- 포멀 전문적 톤

답변:`

const intentPrompt = `# 채팅 의도 분류
입력: "%s"
레시피: %s

# 중요: 음식/요리 키워드 없으면 NOT_COOKING

분류[4]{key,조건,예시}:
  NOT_COOKING,음식/요리 무관,"날씨/영화/여행/운동"
  RECIPE_MODIFY,레시피=Y+수정요청,"빼줘/말고/더 맵게/없어/없는데"
  RECIPE_SEARCH,음식관련+레시피=N,"김치찌개/케이크/빵"
  COOKING_QUESTION,요리 지식,"보관법/칼로리/대체재료"

출력(키워드 1개):`

const declarationPrompt = `# 알러지/비선호 감지
입력: "%s"

# 중요: 메뉴 언급/수정 요청은 NONE
예시[4]{input,result}:
  고수덮밥 먹을까,NONE
  후추 빼고,NONE
  나 고수 싫어해,DISLIKE
  새우 알러지 있어,ALLERGY

# 분류
ALLERGY: 알러지 명시적 진술 (못먹어/배아파)
DISLIKE: 비선호 명시적 진술 (싫어해/안먹어)
NONE: 해당 없음

# 출력
타입: ALLERGY 또는 DISLIKE 또는 NONE
재료: 재료1, 재료2 (없으면 "없음")`

const replaceExtractPrompt = `# 재료 교체 추출
입력: "%s"

# 규칙: "A 말고 B" → A 제거, B 추가 (재료명만)

# 예시
입력: 돼지고기 말고 참치 넣어줘
제거: 돼지고기
추가: 참치

# 출력
제거:
추가:`

const ingredientExtractPrompt = `# 재료명 추출
입력: "%s"

# 규칙: 재료명만 추출 (조사/동사/장소 제거), 없으면 "없음"

# 예시[5]{input,output}:
  참치 빼줘,참치
  집에 간장이 없어,간장
  오이 집에 없어 빼줘,오이
  딸기 블루베리 추가해줘,"딸기, 블루베리"
  알려줘,없음

재료:`

const modifyPrompt = `# 원본 레시피
%s

# 요청
%s

# 규칙
- 위 레시피만 수정
- "A 빼줘" → A 완전 제거
- "A 말고 B" → A를 B로 교체
- "C 추가" → C 추가 (정확한 양)
- 재료: 쉼표 구분, 한 줄, 양 필수
- 금지: 약간, 적당량, 조리법 출력
- 소개: 객관적 포멀 (금지: 이모티콘, ~)

# 출력 형식
변경: 변경 사항 1줄
요리명
⏱️ 시간 | 📊 난이도 | 👥 인분
소개: 객관적 1줄
재료: 재료1 양, 재료2 양 (한 줄, 쉼표 구분)

# 예시
변경: 돼지고기를 참치로 교체
참치 김치찌개
⏱️ 30분 | 📊 초급 | 👥 2인분
소개: 참치와 김치를 활용한 찌개 요리.
재료: 김치 200g, 참치캔 1개, 두부 1/2모, 대파 1대

출력:`
