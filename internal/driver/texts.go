package driver

import (
	"fmt"
	"hash/fnv"

	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

// Free-text pools for the CRM's narrative fields. Variety keeps the tickets
// from reading machine-generated; selection is keyed on the invoice reference
// so a retried run fills identical text.
var (
	visibleDamageOptions = []string{
		"light signs of use",
		"brand new",
		"some scratches",
		"hits on frame",
	}

	itemsLeftOptions = []string{
		"only device",
		"full box device",
	}

	etaOptions = []string{
		"ETA: same day service if possible.",
		"ETA: 1 business day.",
		"ETA: 2-3 business days.",
	}

	promoResolutions = []string{
		"setup done",
		"ready",
		"setup finished",
		"finished setting up",
		"cst informed",
	}

	normalResolutions = []string{
		"device works fine",
		"device ok cst informed",
		"no issues",
		"no problem",
		"works fine",
	}

	problemsByType = map[ticket.Type][]string{
		ticket.TypePromo: {
			"promo setup & optimization",
			"software optimization and account setup",
			"promo service - data check & configuration",
			"promo device setup and update",
		},
		ticket.TypeQuickRepairPrinter: {
			"printer not printing",
			"paper jam randomly",
			"printer offline on network",
			"lines / streaks on prints",
		},
		ticket.TypeQuickRepairLaptop: {
			"slow performance and freezes",
			"random shutdowns while in use",
			"blue screen errors",
			"overheating under light usage",
		},
		ticket.TypeQuickRepairTablet: {
			"touchscreen not responsive",
			"battery drains quickly",
			"tablet not charging",
			"apps crashing frequently",
		},
		ticket.TypeQuickRepairAppliance: {
			"device not powering on",
			"random error codes displayed",
			"unusual noise during operation",
			"device stops mid-cycle",
		},
		ticket.TypeQuickRepairPhone: {
			"screen flickering and ghost touches",
			"device restarting randomly",
			"battery drains very fast",
			"no sound on calls",
			"camera not focusing",
		},
	}
)

// pick selects an option deterministically from seed.
func pick(options []string, seed string) string {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return options[h.Sum32()%uint32(len(options))]
}

func itemsLeftText(seed string) string {
	return pick(itemsLeftOptions, seed+"|items_left")
}

func visibleDamageText(seed string) string {
	return pick(visibleDamageOptions, seed+"|damage")
}

// repairDescription composes the repair narrative: what was left with the
// device, the reported problem for the ticket type, and an ETA.
func repairDescription(typ ticket.Type, itemsLeft, seed string) string {
	problems, ok := problemsByType[typ]
	if !ok {
		problems = problemsByType[ticket.TypeQuickRepairPhone]
	}
	problem := pick(problems, seed+"|problem")
	eta := pick(etaOptions, seed+"|eta")
	return fmt.Sprintf("%s. %s. %s", itemsLeft, problem, eta)
}

func resolutionText(typ ticket.Type, seed string) string {
	if typ == ticket.TypePromo {
		return pick(promoResolutions, seed+"|resolution")
	}
	return pick(normalResolutions, seed+"|resolution")
}
