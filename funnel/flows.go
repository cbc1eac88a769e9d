package funnel

const (
	LandingFlow    = "landing"
	FaceYogaPTFlow = "face-yoga-pt"
	FaceYogaENFlow = "face-yoga-en"
)

// Landing step numbers referenced outside the graph.
const (
	LandingEmailStep   Step = 4
	LandingPricingStep Step = 5
)

// Landing builds the main funnel. amounts are the trial tiers offered on the
// pricing screen.
func Landing(amounts []int) (*Flow, error) {
	screens := []Screen{
		{
			Step:        0,
			Kind:        KindIntro,
			Title:       "A Primeira Inteligência Artificial",
			Subtitle:    "para Cristãos do Brasil",
			ActionLabel: "Testar Agora",
		},
		{
			Step: 1,
			Kind: KindText,
			Paragraphs: []string{
				"+ de 3.000 cristãos estão usando essa Inteligência Artificial para criar orações, " +
					"ler biblia e ter acesso as melhores orações para sua situação atual.",
			},
			ActionLabel: "Continuar",
		},
		{
			Step:  2,
			Kind:  KindQuestion,
			Title: "Você sabe o maior problema das Inteligências Artificiais atualmente?",
			Options: []Option{
				{ID: ChoiceYes, Text: "Sim"},
				{ID: ChoiceNo, Text: "Não"},
			},
		},
		{
			Step: 3,
			Kind: KindText,
			Paragraphs: []string{
				"Todas IAs tem informações genericas e não influencia o jovem a viver sua vida " +
					"a partir de elementos cristãos e bíblicos.",
				"Nosso objetivo é transformar o mundo caótico em mais apelo pela fé em Deus, " +
					"diversas tecnologias estão sendo criadas mas poucas são focadas no público cristão.",
			},
			Highlight:   "Foi assim que surgiu o Cristão IA.",
			ActionLabel: "Continuar",
		},
		{
			Step:        LandingEmailStep,
			Kind:        KindEmail,
			Title:       "Parabéns liberamos um teste para você na nossa plataforma.",
			Subtitle:    "Para continuar, por favor insira seu e-mail:",
			ActionLabel: "Continuar",
		},
		{
			Step: LandingPricingStep,
			Kind: KindPricing,
			Paragraphs: []string{
				"Para desenvolver tecnologia custa muito caro porém para viralizar essa ação " +
					"estamos oferecemos um teste por um valor simbólico.",
			},
			Title:       "Escolha o valor do seu período teste de 14 dias:",
			Amounts:     append([]int(nil), amounts...),
			Disclaimer:  "Após os 14 dias, sua assinatura será renovada por 69/mês. Cancele quando quiser.",
			ActionLabel: "Ativar Período Teste!",
		},
	}

	edges := map[Transition]Step{
		{From: 0, Choice: ChoiceContinue}:                  1,
		{From: 1, Choice: ChoiceContinue}:                  2,
		{From: 2, Choice: ChoiceYes}:                       3,
		{From: 2, Choice: ChoiceNo}:                        3,
		{From: 3, Choice: ChoiceContinue}:                  4,
		{From: LandingEmailStep, Choice: ChoiceSubmitEmail}: LandingPricingStep,
	}

	return NewFlow(LandingFlow, "pt-BR", 0, screens, edges)
}

func FaceYogaPT() (*Flow, error) {
	sleep := Screen{
		Step:     23,
		Kind:     KindQuestion,
		Title:    "Quantas horas você dorme por noite?",
		Subtitle: "Considere seu tempo médio de sono noturno",
		Options: []Option{
			{ID: "less_than_5", Text: "Menos de 5 horas", Description: "Durmo muito pouco durante a noite"},
			{ID: "five_to_six", Text: "5 a 6 horas", Description: "Durmo um pouco abaixo do recomendado"},
			{ID: "seven_to_eight", Text: "7 a 8 horas", Description: "Durmo o tempo recomendado"},
			{ID: "more_than_eight", Text: "Mais de 8 horas", Description: "Durmo bastante durante a noite"},
		},
		BackLabel: "Voltar",
	}

	edges := optionEdges(sleep, 27)
	edges[Transition{From: 23, Choice: ChoiceBack}] = 16

	return NewFlow(FaceYogaPTFlow, "pt-BR", 23, []Screen{sleep}, edges)
}

func FaceYogaEN() (*Flow, error) {
	meals := Screen{
		Step:     10,
		Kind:     KindQuestion,
		Title:    "How many meals do you have per day?",
		Subtitle: "Choose the option that best describes your eating habits",
		Options: []Option{
			{ID: "less_than_3", Text: "Less than 3", Description: "1-2 meals per day"},
			{ID: "at_least_3", Text: "At least 3", Description: "3 or more meals per day"},
			{ID: "varies", Text: "Varies", Description: "Irregular number of meals"},
		},
		BackLabel: "Back",
	}
	motivation := Screen{
		Step:     20,
		Kind:     KindQuestion,
		Title:    "What motivates you to maintain a Face Yoga and skincare routine?",
		Subtitle: "Select your main motivation",
		Options: []Option{
			{ID: "confidence", Text: "I want to look younger and more confident", Description: "Looking to improve my self-esteem"},
			{ID: "less_makeup", Text: "I want to use less makeup", Description: "Desire naturally beautiful skin"},
			{ID: "impress", Text: "I want to impress", Description: "Looking to make a good impression"},
			{ID: "partner", Text: "I'm afraid my partner might drift away", Description: "Concerned about my relationship"},
			{ID: "prevent", Text: "I want to prevent aging", Description: "Looking to maintain youthful skin"},
			{ID: "rituals", Text: "I want to create my own beauty rituals", Description: "Desire to establish a personalized routine"},
		},
		BackLabel: "Back",
	}

	edges := optionEdges(meals, 11)
	edges[Transition{From: 10, Choice: ChoiceBack}] = 9
	for t, to := range optionEdges(motivation, 21) {
		edges[t] = to
	}
	edges[Transition{From: 20, Choice: ChoiceBack}] = 19

	return NewFlow(FaceYogaENFlow, "en", 10, []Screen{meals, motivation}, edges)
}

// optionEdges points every option of s at the same target.
func optionEdges(s Screen, to Step) map[Transition]Step {
	edges := make(map[Transition]Step, len(s.Options)+1)
	for _, o := range s.Options {
		edges[Transition{From: s.Step, Choice: o.ID}] = to
	}
	return edges
}

// All builds every flow served by the funnel, keyed by name.
func All(amounts []int) (map[string]*Flow, error) {
	builders := []func() (*Flow, error){
		func() (*Flow, error) { return Landing(amounts) },
		FaceYogaPT,
		FaceYogaEN,
	}
	flows := make(map[string]*Flow, len(builders))
	for _, build := range builders {
		f, err := build()
		if err != nil {
			return nil, err
		}
		flows[f.Name()] = f
	}
	return flows, nil
}
