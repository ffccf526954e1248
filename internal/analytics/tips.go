package analytics

import (
	"wellnesslog/internal/core"
)

// Fixed tip messages. Callers and tests compare against these values.
const (
	TipFocusNoData    = "No focus data yet. Log a few days to get tips."
	TipSleepInRange   = "Great job keeping your sleep between 7 and 9 hours. Well-rested days tend to be more focused."
	TipSleepTooLittle = "Try to increase your sleep toward 7–9 hours. Short nights usually cost focus the next day."
	TipSleepTooMuch   = "You are averaging more than 9 hours of sleep. Oversleeping can leave you groggy; aim for 7–9 hours."
	TipScreenTime     = "Your average screen time is above 4 hours. Consider breaks away from screens to rest your eyes and mind."
	TipExercise       = "Adding at least 20 minutes of exercise a day can lift your energy and concentration."
	TipLowEnergy      = "Your average focus rating is below 6. Look for patterns in sleep and screen time on low-energy days."
	TipSkinNoData     = "No skin data yet. Log a few days to get tips."
	TipWaterGood      = "Nice hydration. Six or more cups a day helps your skin stay healthy."
	TipWaterLow       = "Try to drink more water; aim for at least 6 cups a day."
	TipStressFlare    = "High stress can trigger skin flare-ups. Short relaxation breaks may help."
	TipGentleSkincare = "Irritated days outnumber clear ones. Switch to a gentle, fragrance-free skincare routine."
	TipMoodNoData     = "No mood data yet. Log a few days to get tips."
	TipMoodCoping     = "Stressed days outnumber happy ones. Try a coping routine such as a walk, journaling or talking to a friend."
	TipMoodTiredness  = "You have logged tired days. Check your sleep schedule and take short rests when you can."
	TipMoodReinforce  = "Happy is your most common mood. Keep doing what works for you!"
)

const (
	sleepBandLow       = 7.0
	sleepBandHigh      = 9.0
	screenCautionHours = 4.0
	exerciseMinMinutes = 20.0
	lowEnergyRating    = 6.0
	waterGoalCups      = 6.0
	stressFlareAverage = 6.0
)

// FocusTips evaluates the focus checks in fixed order and returns every
// message that applies.
func FocusTips(entries []core.FocusEntry) []string {
	if len(entries) == 0 {
		return []string{TipFocusNoData}
	}
	avg := averageFocus(entries)
	var tips []string
	switch {
	case avg.sleep < sleepBandLow:
		tips = append(tips, TipSleepTooLittle)
	case avg.sleep > sleepBandHigh:
		tips = append(tips, TipSleepTooMuch)
	default:
		tips = append(tips, TipSleepInRange)
	}
	if avg.screen > screenCautionHours {
		tips = append(tips, TipScreenTime)
	}
	if avg.exercise < exerciseMinMinutes {
		tips = append(tips, TipExercise)
	}
	if avg.rating < lowEnergyRating {
		tips = append(tips, TipLowEnergy)
	}
	return tips
}

// SkinTips always includes one water message, then the stress and
// skincare checks when they fire.
func SkinTips(entries []core.SkinEntry) []string {
	if len(entries) == 0 {
		return []string{TipSkinNoData}
	}
	avg := averageSkin(entries)
	var tips []string
	if avg.water >= waterGoalCups {
		tips = append(tips, TipWaterGood)
	} else {
		tips = append(tips, TipWaterLow)
	}
	if avg.stress > stressFlareAverage {
		tips = append(tips, TipStressFlare)
	}
	dist := ConditionDistribution(entries)
	if dist.Irritated > dist.Clear {
		tips = append(tips, TipGentleSkincare)
	}
	return tips
}

// MoodTips runs three independent checks. When nothing fires the result is
// empty, not nil.
func MoodTips(entries []core.MoodEntry) []string {
	if len(entries) == 0 {
		return []string{TipMoodNoData}
	}
	_, counts := MoodCounts(entries)
	happy := counts[core.MoodHappy]
	calm := counts[core.MoodCalm]
	stressed := counts[core.MoodStressed]
	tired := counts[core.MoodTired]

	tips := []string{}
	if stressed > happy {
		tips = append(tips, TipMoodCoping)
	}
	if tired > 0 {
		tips = append(tips, TipMoodTiredness)
	}
	if happy >= max(calm, stressed, tired) {
		tips = append(tips, TipMoodReinforce)
	}
	return tips
}
